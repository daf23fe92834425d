package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// requestIDFor runs one request through RequestIDMiddleware and returns the
// response header ID and the ID the handler saw in the context.
func requestIDFor(inbound string) (headerID, contextID string) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/api/v1/me/notifications", func(c *gin.Context) {
		contextID = c.GetString(RequestIDKey)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/notifications", nil)
	if inbound != "" {
		req.Header.Set(RequestIDHeader, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header().Get(RequestIDHeader), contextID
}

func TestRequestIDMiddleware_GeneratesUUIDWhenAbsent(t *testing.T) {
	headerID, contextID := requestIDFor("")

	if !uuidPattern.MatchString(headerID) {
		t.Errorf("generated request ID %q is not a UUID v4", headerID)
	}
	if headerID != contextID {
		t.Errorf("context ID %q does not match response header ID %q", contextID, headerID)
	}
}

func TestRequestIDMiddleware_ReusesInboundID(t *testing.T) {
	const frontendID = "lms-web-7f3a2c"

	headerID, contextID := requestIDFor(frontendID)

	if headerID != frontendID {
		t.Errorf("response X-Request-ID = %q, want inbound %q preserved", headerID, frontendID)
	}
	if contextID != frontendID {
		t.Errorf("context request ID = %q, want inbound %q", contextID, frontendID)
	}
}

func TestRequestIDMiddleware_UniquePerRequest(t *testing.T) {
	seen := make(map[string]struct{}, 10)
	for i := 0; i < 10; i++ {
		headerID, _ := requestIDFor("")
		if _, dup := seen[headerID]; dup {
			t.Errorf("duplicate request ID %q on iteration %d", headerID, i)
		}
		seen[headerID] = struct{}{}
	}
}
