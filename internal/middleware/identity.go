package middleware

import (
	"net/http"
	"strings"

	"github.com/dfryer1193/postboard/api"
	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/gin-gonic/gin"
)

// CallerHeader carries the caller identity established by the authentication
// layer in front of this service.
const CallerHeader = "X-Caller-Identity"

const callerKey = "caller"

// RequireCaller rejects requests without a caller identity and stores it for Caller.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := strings.TrimSpace(c.GetHeader(CallerHeader))
		if caller == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Error{Error: "missing " + CallerHeader + " header"})
			return
		}
		c.Set(callerKey, domain.Identity(caller))
		c.Next()
	}
}

// Caller returns the identity stored by RequireCaller.
func Caller(c *gin.Context) domain.Identity {
	v, ok := c.Get(callerKey)
	if !ok {
		return ""
	}
	id, _ := v.(domain.Identity)
	return id
}
