package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/drive-value/internal/domain/auth"
	"github.com/yanqian/drive-value/internal/domain/session"
	"github.com/yanqian/drive-value/internal/domain/workspace"
	"github.com/yanqian/drive-value/internal/infra/config"
	"github.com/yanqian/drive-value/pkg/metrics"
)

// Handler wires the HTTP transport to the per-session workspaces.
type Handler struct {
	registry *workspace.Registry
	authSvc  auth.Service
	outcomes *metrics.Outcomes
	google   config.GoogleConfig
	cookies  *sessionCookies
	logger   *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg *config.Config, registry *workspace.Registry, authSvc auth.Service, outcomes *metrics.Outcomes, logger *slog.Logger) (*Handler, error) {
	cookies, err := newSessionCookies(cfg.HTTP.Cookie, logger)
	if err != nil {
		return nil, err
	}
	return &Handler{
		registry: registry,
		authSvc:  authSvc,
		outcomes: outcomes,
		google:   cfg.Auth.Google,
		cookies:  cookies,
		logger:   logger.With("component", "http.handler"),
	}, nil
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "workspaces": h.registry.Len()})
}

// Metrics exposes the valuation outcome counters.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.outcomes.Snapshot())
}

// Session returns the gate state of the caller.
func (h *Handler) Session(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Gate.State())
}

// Login exchanges email and password for a session.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	h.signIn(c, func(ws *workspace.Workspace) (session.State, error) {
		return h.authSvc.Login(c.Request.Context(), ws.Gate, req)
	})
}

// Register creates an account and signs it in.
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	h.signIn(c, func(ws *workspace.Workspace) (session.State, error) {
		return h.authSvc.Register(c.Request.Context(), ws.Gate, req)
	})
}

// Google signs in with an ID token obtained by the browser.
func (h *Handler) Google(c *gin.Context) {
	var req auth.GoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	h.signIn(c, func(ws *workspace.Workspace) (session.State, error) {
		return h.authSvc.Google(c.Request.Context(), ws.Gate, req.Credential)
	})
}

func (h *Handler) signIn(c *gin.Context, login func(ws *workspace.Workspace) (session.State, error)) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	state, err := login(ws)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	if state.Identity != nil {
		ws.Account.Seed(*state.Identity)
	}
	c.JSON(http.StatusOK, state)
}

// GoogleStart redirects the browser to Google's consent screen.
func (h *Handler) GoogleStart(c *gin.Context) {
	state, verifier, challenge, err := auth.NewOAuthState()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "oauth_state_failed", "failed to start google sign-in", err))
		return
	}
	url, err := h.authSvc.GoogleAuthURL(c.Request.Context(), state, challenge)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	if err := setOAuthStateCookie(c, h.google.StateEncryptionKey, state, verifier); err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "oauth_state_failed", "failed to start google sign-in", err))
		return
	}
	c.Redirect(http.StatusFound, url)
}

// GoogleCallback completes the code flow started by GoogleStart.
func (h *Handler) GoogleCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		clearOAuthStateCookie(c)
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "oauth_denied", errParam, nil))
		return
	}
	stored, ok := readOAuthStateCookie(c, h.google.StateEncryptionKey)
	clearOAuthStateCookie(c)
	if !ok || stored.State != c.Query("state") {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_oauth_state", "oauth state mismatch", nil))
		return
	}
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	state, err := h.authSvc.GoogleCallback(c.Request.Context(), ws.Gate, c.Query("code"), stored.CodeVerifier)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	if state.Identity != nil {
		ws.Account.Seed(*state.Identity)
	}
	if target := strings.TrimSpace(h.google.PostLoginRedirectURL); target != "" {
		c.Redirect(http.StatusFound, target)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Logout ends the session and clears every piece of session state.
func (h *Handler) Logout(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	h.authSvc.Logout(c.Request.Context(), ws.Gate.State().Token)
	if err := ws.Logout(c.Request.Context()); err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, ws.Gate.State())
}

func (h *Handler) workspace(c *gin.Context) (*workspace.Workspace, bool) {
	ws, ok := getWorkspace(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "session_failed", "session missing", nil))
	}
	return ws, ok
}
