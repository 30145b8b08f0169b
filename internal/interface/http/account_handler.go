package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/drive-value/internal/domain/account"
	"github.com/yanqian/drive-value/internal/domain/user"
	"github.com/yanqian/drive-value/internal/domain/workspace"
	"github.com/yanqian/drive-value/pkg/lifecycle"
)

type accountResponse struct {
	Account user.Identity `json:"account"`
	State   account.State `json:"state"`
}

// Account returns the signed-in account, fetching it from the API on first
// use or when refresh=true.
func (h *Handler) Account(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if ws.Account.State().Status == lifecycle.StatusIdle || c.Query("refresh") == "true" {
		if _, err := ws.Account.Load(c.Request.Context(), ws.Gate.State().Token); err != nil {
			abortWithError(c, domainError(err))
			return
		}
	}
	h.respondAccount(c, ws)
}

// UpdateProfile saves profile fields.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req user.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	h.mutateAccount(c, func(ws *workspace.Workspace, token string) error {
		_, err := ws.Account.UpdateProfile(c.Request.Context(), token, req)
		return err
	})
}

// UpdatePreferences saves UI preferences.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req user.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	h.mutateAccount(c, func(ws *workspace.Workspace, token string) error {
		_, err := ws.Account.UpdatePreferences(c.Request.Context(), token, req)
		return err
	})
}

// AddFavorite saves a vehicle to favorites.
func (h *Handler) AddFavorite(c *gin.Context) {
	var req user.Favorite
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	h.mutateAccount(c, func(ws *workspace.Workspace, token string) error {
		_, err := ws.Account.AddFavorite(c.Request.Context(), token, req)
		return err
	})
}

// RemoveFavorite deletes a favorite by VIN.
func (h *Handler) RemoveFavorite(c *gin.Context) {
	vin := c.Param("vin")
	h.mutateAccount(c, func(ws *workspace.Workspace, token string) error {
		_, err := ws.Account.RemoveFavorite(c.Request.Context(), token, vin)
		return err
	})
}

// RecordSearch appends to the recent search list.
func (h *Handler) RecordSearch(c *gin.Context) {
	var req user.SearchRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	h.mutateAccount(c, func(ws *workspace.Workspace, token string) error {
		_, err := ws.Account.RecordSearch(c.Request.Context(), token, req)
		return err
	})
}

func (h *Handler) mutateAccount(c *gin.Context, mutate func(ws *workspace.Workspace, token string) error) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := mutate(ws, ws.Gate.State().Token); err != nil {
		abortWithError(c, domainError(err))
		return
	}
	h.respondAccount(c, ws)
}

func (h *Handler) respondAccount(c *gin.Context, ws *workspace.Workspace) {
	c.JSON(http.StatusOK, accountResponse{Account: ws.Account.Account(), State: ws.Account.State()})
}
