package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader propagates the request identifier to and from clients.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key holding the request ID string.
	// The request logger, the audit trail, and error responses all read it
	// from here rather than re-parsing headers.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware tags every request with an identifier. An inbound
// X-Request-ID (from the LMS frontend or a proxy in front of it) is reused so
// a support ticket quoting the frontend's ID matches the server-side log
// lines; otherwise a fresh UUID v4 is generated. The ID is stored under
// RequestIDKey and echoed in the response header.
//
// Register it before the logging and audit middleware so both see the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
