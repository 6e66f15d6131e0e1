package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deploytracker/internal/services"
)

const (
	TrackerContextKey   = "tracker"
	SessionIDContextKey = "session_id"
)

// Session attaches the caller's tracker to the request. Browsers are
// identified by a cookie that is issued on first visit; API clients
// without a cookie jar may send X-Session-ID instead.
func Session(sessionService *services.SessionService, maxAge int, secure bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(services.SessionHeaderKey)
		if sessionID == "" {
			sessionID, _ = c.Cookie(services.SessionCookieKey)
		}

		if !sessionService.ValidSessionID(sessionID) {
			sessionID = sessionService.NewSessionID()
		}
		// Refresh the cookie on every request so it tracks the idle timeout.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(services.SessionCookieKey, sessionID, maxAge, "/", "", secure, true)
		c.Header(services.SessionHeaderKey, sessionID)

		tracker, err := sessionService.Tracker(c.Request.Context(), sessionID)
		if err != nil {
			logger.Error("failed to start session", zap.String("session_id", sessionID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load deployments"})
			return
		}

		c.Set(SessionIDContextKey, sessionID)
		c.Set(TrackerContextKey, tracker)
		c.Next()
	}
}

func GetTracker(c *gin.Context) *services.Tracker {
	if tracker, exists := c.Get(TrackerContextKey); exists {
		return tracker.(*services.Tracker)
	}
	return nil
}

func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDContextKey)
}
