package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// DeviceCookie identifies a browser. It replaces the browser-local
	// storage the widgets used for their flags.
	DeviceCookie = "device_id"

	deviceKey        = "device_id"
	deviceCookieAge  = 365 * 24 * 60 * 60 // One year, in seconds
	maxConsentBytes  = 4 << 10
	errUnauthorized  = "unauthorized"
	errWrongPassword = "wrong password"
)

// deviceCookie makes sure every request carries a device id, issuing a new
// one when the cookie is missing or malformed.
func deviceCookie() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(DeviceCookie)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(DeviceCookie, id, deviceCookieAge, "/", "", false, true)
		}
		c.Set(deviceKey, id)
		c.Next()
	}
}

// device returns the request's device id.
func device(c *gin.Context) string {
	return c.GetString(deviceKey)
}

// requireDashboard answers 503 when the dashboard is not configured.
func (s *Server) requireDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Gate == nil || s.deps.Dashboard == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard not configured"})
			return
		}
		c.Next()
	}
}

// requireAuth answers 401 unless the device has passed the password gate.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := s.deps.Gate.IsAuthorized(c.Request.Context(), device(c))
		if err != nil {
			s.logger.Warn("auth lookup failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		c.Next()
	}
}
