package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is echoed back on every response so log lines can be
	// tied to a client-observed request.
	RequestIDHeader = "X-Request-ID"
	// ContextRequestIDKey stores the request id in Gin context.
	ContextRequestIDKey = "request_id"
)

// RequestID tags each request with an identifier. An id supplied by the
// client is kept, otherwise a fresh one is generated.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set(ContextRequestIDKey, id)
		ctx.Writer.Header().Set(RequestIDHeader, id)
		ctx.Next()
	}
}
