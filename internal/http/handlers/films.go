package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/favfilms/internal/cache"
	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/gin-gonic/gin"
)

const storeTimeout = 3 * time.Second

type FilmsStore interface {
	Create(ctx context.Context, req film.CreateRequest) (film.Entry, error)
	GetByID(ctx context.Context, id int64) (film.Entry, error)
	List(ctx context.Context, f film.ListFilter) ([]film.Entry, error)
	Update(ctx context.Context, id int64, req film.UpdateRequest) (film.Entry, error)
	Delete(ctx context.Context, id int64) error
}

type FilmsMetrics interface {
	ObserveCache(hit bool)
	ObserveFilmMutation(op string)
}

type FilmsHandler struct {
	repo    FilmsStore
	cache   cache.Store
	log     *slog.Logger
	metrics FilmsMetrics
}

type ListFilmsResponse struct {
	Data     []film.Entry `json:"data"`
	HasMore  bool         `json:"hasMore"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

// c and metrics may be nil.
func NewFilmsHandler(repo FilmsStore, c cache.Store, log *slog.Logger, metrics FilmsMetrics) *FilmsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &FilmsHandler{
		repo:    repo,
		cache:   c,
		log:     log,
		metrics: metrics,
	}
}

func (h *FilmsHandler) ListFilms(ctx *gin.Context) {
	page := parsePage(ctx.Query("page"))
	filter := film.PageFilter(page)

	if raw := strings.TrimSpace(ctx.Query("type")); raw != "" {
		t, ok := film.ParseEntryType(raw)
		if !ok {
			RespondBadRequest(ctx, "Invalid query", gin.H{
				"fields": []FieldError{{Field: "type", Rule: "oneof", Param: "Movie TV_Show", Message: validationMessage("oneof", "Movie TV_Show")}},
			})
			return
		}
		filter.Type = &t
	}

	if genre := strings.TrimSpace(ctx.Query("genre")); genre != "" {
		filter.Genre = &genre
	}

	if q := strings.TrimSpace(ctx.Query("q")); q != "" {
		filter.Query = &q
	}

	key := cache.BuildFilmsListKey(page, filter)

	if h.cache != nil {
		body, ok := h.cache.Get(ctx.Request.Context(), key)
		h.observeCache(ok)
		if ok {
			RespondBytesWithETag(ctx, http.StatusOK, body)
			return
		}
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	items, err := h.repo.List(cctx, filter)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list films failed", "err", err, "page", page)
		RespondStorage(ctx, err)
		return
	}

	if items == nil {
		items = []film.Entry{}
	}

	resp := ListFilmsResponse{
		Data: items,
		// a full page may still be the last one; clients then get one empty page
		HasMore:  len(items) == film.PageSize,
		Page:     page,
		PageSize: film.PageSize,
	}

	body, err := json.Marshal(resp)
	if err != nil {
		RespondInternal(ctx, "Could not encode films")
		return
	}

	if h.cache != nil {
		h.cache.Set(ctx.Request.Context(), key, body)
	}

	RespondBytesWithETag(ctx, http.StatusOK, body)
}

func (h *FilmsHandler) GetFilm(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, film.ErrNotFound) {
			RespondNotFound(ctx, "Film not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "get film failed", "err", err, "id", id)
		RespondStorage(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, e)
}

func (h *FilmsHandler) CreateFilm(ctx *gin.Context) {
	var req film.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		RespondValidation(ctx, err)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	e, err := h.repo.Create(cctx, req)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "create film failed", "err", err)
		RespondStorage(ctx, err)
		return
	}

	h.afterWrite(ctx, "create")

	ctx.JSON(http.StatusCreated, e)
}

// UpdateFilm changes only the fields present in the body.
func (h *FilmsHandler) UpdateFilm(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req film.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		RespondValidation(ctx, err)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	e, err := h.repo.Update(cctx, id, req)
	if err != nil {
		if errors.Is(err, film.ErrNotFound) {
			RespondNotFound(ctx, "Film not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "update film failed", "err", err, "id", id)
		RespondStorage(ctx, err)
		return
	}

	h.afterWrite(ctx, "update")

	ctx.JSON(http.StatusOK, e)
}

func (h *FilmsHandler) DeleteFilm(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	err := h.repo.Delete(cctx, id)
	if err != nil {
		if errors.Is(err, film.ErrNotFound) {
			RespondNotFound(ctx, "Film not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "delete film failed", "err", err, "id", id)
		RespondStorage(ctx, err)
		return
	}

	h.afterWrite(ctx, "delete")

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Film deleted",
	})
}

// afterWrite drops every cached list page; any write can shift page contents.
func (h *FilmsHandler) afterWrite(ctx *gin.Context, op string) {
	if h.cache != nil {
		h.cache.Invalidate(ctx.Request.Context(), cache.FilmsListPrefix)
	}
	if h.metrics != nil {
		h.metrics.ObserveFilmMutation(op)
	}
}

func (h *FilmsHandler) observeCache(hit bool) {
	if h.metrics != nil {
		h.metrics.ObserveCache(hit)
	}
}

// parsePage falls back to the first page on anything but a positive integer.
func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		RespondError(ctx, http.StatusBadRequest, CodeInvalidID, "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
