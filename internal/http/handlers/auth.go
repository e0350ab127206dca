package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/favfilms/internal/domain/user"
	"github.com/geocoder89/favfilms/internal/http/middlewares"
	"github.com/geocoder89/favfilms/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
}

type UserStore interface {
	UserReader
	UserWriter
}

type TokenIssuer interface {
	Issue(u user.User) (string, error)
}

type AuthMetrics interface {
	ObserveAuth(action, result string)
}

type AuthHandler struct {
	users   UserStore
	tokens  TokenIssuer
	log     *slog.Logger
	metrics AuthMetrics
}

type AuthResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

func NewAuthHandler(users UserStore, tokens TokenIssuer, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		users:  users,
		tokens: tokens,
		log:    log,
	}
}

// WithMetrics records signup and login outcomes on m.
func (h *AuthHandler) WithMetrics(m AuthMetrics) *AuthHandler {
	h.metrics = m
	return h
}

func (h *AuthHandler) observe(action, result string) {
	if h.metrics != nil {
		h.metrics.ObserveAuth(action, result)
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "name", Rule: "required", Message: "must not be blank"}},
		})
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.Create(cctx, req.Name, req.Email, hash)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			h.observe("signup", "rejected")
			RespondError(ctx, http.StatusBadRequest, CodeEmailTaken, "Email is already in use.", nil)
			return
		}

		h.observe("signup", "error")
		h.log.ErrorContext(ctx.Request.Context(), "create user failed", "err", err)
		RespondStorage(ctx, err)
		return
	}

	token, err := h.tokens.Issue(u)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.observe("signup", "ok")
	ctx.JSON(http.StatusCreated, AuthResponse{Token: token, User: u})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.observe("login", "rejected")
			RespondUnAuthorized(ctx, CodeInvalidCredentials, "Email or password is incorrect.")
			return
		}

		h.observe("login", "error")
		h.log.ErrorContext(ctx.Request.Context(), "lookup user failed", "err", err)
		RespondStorage(ctx, err)
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.observe("login", "rejected")
		RespondUnAuthorized(ctx, CodeInvalidCredentials, "Email or password is incorrect.")
		return
	}

	token, err := h.tokens.Issue(foundUser)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.observe("login", "ok")
	ctx.JSON(http.StatusOK, AuthResponse{Token: token, User: foundUser})
}

// Me echoes the identity carried by the caller's token.
func (h *AuthHandler) Me(ctx *gin.Context) {
	subject, ok := middlewares.SubjectFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, CodeUnauthorized, "No token provided")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": subject})
}
