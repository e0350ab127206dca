package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/geocoder89/favfilms/internal/domain/film"
	"github.com/geocoder89/favfilms/internal/domain/user"
)

// ErrUnauthorized is returned for any 401. The held token has been cleared.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Code    string
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

type AuthResult struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

type Page struct {
	Data     []film.Entry `json:"data"`
	HasMore  bool         `json:"hasMore"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = NewSession(nil)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		session:    session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Signup(ctx context.Context, name, email, password string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"name": name, "email": email, "password": password}

	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, body, &out); err != nil {
		return AuthResult{}, err
	}
	if err := c.session.Save(out.Token); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}

	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return AuthResult{}, err
	}
	if err := c.session.Save(out.Token); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

func (c *Client) Logout() error {
	return c.session.Logout()
}

func (c *Client) ListFilms(ctx context.Context, page int) (Page, error) {
	var out Page
	q := url.Values{"page": {strconv.Itoa(page)}}

	if err := c.do(ctx, http.MethodGet, "/films", q, nil, &out); err != nil {
		return Page{}, err
	}
	return out, nil
}

func (c *Client) GetFilm(ctx context.Context, id int64) (film.Entry, error) {
	var out film.Entry
	err := c.do(ctx, http.MethodGet, "/films/"+strconv.FormatInt(id, 10), nil, nil, &out)
	return out, err
}

func (c *Client) CreateFilm(ctx context.Context, req film.CreateRequest) (film.Entry, error) {
	var out film.Entry
	err := c.do(ctx, http.MethodPost, "/films", nil, req, &out)
	return out, err
}

// UpdateFilm sends only the non-nil fields of req; the server keeps the rest.
func (c *Client) UpdateFilm(ctx context.Context, id int64, req film.UpdateRequest) (film.Entry, error) {
	var out film.Entry
	err := c.do(ctx, http.MethodPut, "/films/"+strconv.FormatInt(id, 10), nil, req, &out)
	return out, err
}

func (c *Client) DeleteFilm(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/films/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	target, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = c.session.Logout()
		if msg := errorMessage(raw); msg != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		}
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Body: raw}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error.Message
}
