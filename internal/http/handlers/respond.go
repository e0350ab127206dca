package handlers

import (
	"net/http"

	"github.com/geocoder89/favfilms/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Machine-readable codes carried in the error envelope.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidID          = "invalid_id"
	CodeNotFound           = "not_found"
	CodeEmailTaken         = "email_taken"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnauthorized       = "unauthorized"
	CodePayloadTooLarge    = "payload_too_large"
	CodeStorage            = "storage_error"
	CodeInternal           = "internal_error"
)

// APIError is the body of every failed response: {"error": APIError}.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if s := ctx.GetString(middlewares.CtxRequestID); s != "" {
		return s
	}

	return ctx.GetHeader(middlewares.RequestIDHeader)
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, CodeInvalidRequest, message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, CodeNotFound, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, CodeInternal, message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

// RespondStorage reports a failed store call. The underlying error text is
// passed through to the caller.
func RespondStorage(ctx *gin.Context, err error) {
	RespondError(ctx, http.StatusInternalServerError, CodeStorage, err.Error(), nil)
}
