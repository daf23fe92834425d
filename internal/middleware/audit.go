// audit.go records authenticated mutating requests to the audit trail. Reads
// are not audited; the trail captures who changed what, not who looked.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnstack/lms-backend/internal/audit"
	"github.com/learnstack/lms-backend/internal/safego"
)

// AuditMiddleware ships one audit event per mutating request after the
// handler completes. Shipping happens off the request goroutine so a slow
// webhook destination cannot add latency to API responses.
func AuditMiddleware(shipper audit.Shipper) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		ev := &audit.Event{
			Timestamp:      time.Now().UTC(),
			Action:         c.Request.Method + " " + c.FullPath(),
			ActorID:        c.GetString("user_id"),
			OrganizationID: c.Param("org_id"),
			TargetID:       c.Param("target_id"),
			IPAddress:      c.ClientIP(),
			RequestID:      c.GetString(RequestIDKey),
			StatusCode:     c.Writer.Status(),
		}

		safego.Go("audit-ship", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = shipper.Ship(ctx, ev)
		})
	}
}
