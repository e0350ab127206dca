package middlewares

// keys stored on *gin.Context
const (
	CtxRequestID = "request_id"
	CtxSubject   = "auth.subject"
)
