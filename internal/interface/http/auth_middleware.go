package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/drive-value/internal/domain/session"
	"github.com/yanqian/drive-value/internal/domain/workspace"
)

// workspaceMiddleware attaches the caller's workspace, creating the session
// cookie on first contact.
func workspaceMiddleware(registry *workspace.Registry, cookies *sessionCookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := cookies.resolve(c)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "session_failed", "failed to start session", err))
			return
		}
		setWorkspace(c, registry.Get(c.Request.Context(), id))
		c.Next()
	}
}

// requireSession rejects requests whose session is not signed in.
func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, ok := getWorkspace(c)
		if !ok {
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "session_failed", "session missing", nil))
			return
		}
		switch session.Guard(ws.Gate.State()) {
		case session.AccessGranted:
			c.Next()
		case session.AccessPending:
			c.Header("Retry-After", "1")
			abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, "session_pending", "session is still loading", nil))
		default:
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "sign in required", nil))
		}
	}
}
