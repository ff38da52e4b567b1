package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultHeaders are the request headers browsers may send to either server.
var DefaultHeaders = []string{
	"Authorization",
	"Content-Type",
	"X-Requested-With",
	"X-Request-ID",
	"X-Canvas-Url",
	"X-Api-Key",
}

const allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// New returns a CORS middleware that honors a list of allowed origins. An empty list allows any
// origin, as does a "*" entry. Preflight requests are answered with 200 and never reach the handlers.
func New(allowedOrigins []string, extraHeaders ...string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}
	headers := strings.Join(append(append([]string{}, DefaultHeaders...), extraHeaders...), ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		switch {
		case origin == "" && allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowAll:
			h.Set("Access-Control-Allow-Origin", origin)
		case origin != "" && hasOrigin(originSet, origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Methods", allowedMethods)
		h.Set("Access-Control-Expose-Headers", "Link, X-Request-ID")
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	origin = strings.TrimRight(origin, "/")
	_, ok := originSet[origin]
	return ok
}
