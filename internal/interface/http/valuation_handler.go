package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/drive-value/internal/domain/user"
	"github.com/yanqian/drive-value/internal/domain/valuation"
	"github.com/yanqian/drive-value/internal/domain/workspace"
	apperrors "github.com/yanqian/drive-value/pkg/errors"
	"github.com/yanqian/drive-value/pkg/lifecycle"
)

// SubmitValuation runs a valuation for the caller's session and answers
// with the resulting request state.
func (h *Handler) SubmitValuation(c *gin.Context) {
	var params valuation.Parameters
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	state := ws.Coordinator.Submit(c.Request.Context(), params)
	if state.Status == lifecycle.StatusSucceeded && state.Value != nil {
		h.recordSearch(c, ws, *state.Value, params)
	}
	c.JSON(submissionStatus(state), state)
}

// submissionStatus picks the response status for a settled submission. A
// submission superseded by a newer one answers 202 with the newer state.
func submissionStatus(state valuation.RequestState) int {
	switch state.Status {
	case lifecycle.StatusSucceeded:
		return http.StatusOK
	case lifecycle.StatusFailed:
		if apperrors.IsCode(state.Err, valuation.CodeValidation) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	default:
		return http.StatusAccepted
	}
}

func (h *Handler) recordSearch(c *gin.Context, ws *workspace.Workspace, vm valuation.ViewModel, params valuation.Parameters) {
	token := ws.Gate.State().Token
	search := user.SearchRecord{
		VIN:       params.Request().VIN,
		Year:      vm.Vehicle.Year,
		Make:      vm.Vehicle.Make,
		Model:     vm.Vehicle.Model,
		Condition: string(params.Normalize().Condition),
	}
	if _, err := ws.Account.RecordSearch(c.Request.Context(), token, search); err != nil {
		h.logger.Warn("record search failed", "vin", search.VIN, "error", err)
	}
}

// ValuationState returns the latest request state.
func (h *Handler) ValuationState(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Coordinator.State())
}

// ClearValuation returns the request state to idle.
func (h *Handler) ClearValuation(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	ws.Coordinator.Clear()
	c.JSON(http.StatusOK, ws.Coordinator.State())
}

// ValuationEvents streams request state changes using Server-Sent Events.
// The current state is sent first. Slow readers only see the latest state.
func (h *Handler) ValuationEvents(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	updates := make(chan valuation.RequestState, 1)
	unsubscribe := ws.Coordinator.Subscribe(func(state valuation.RequestState) {
		select {
		case updates <- state:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- state:
			default:
			}
		}
	})
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	if !h.writeEvent(c, flusher, ws.Coordinator.State()) {
		return
	}
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case state := <-updates:
			if !h.writeEvent(c, flusher, state) {
				return
			}
		}
	}
}

func (h *Handler) writeEvent(c *gin.Context, flusher http.Flusher, state valuation.RequestState) bool {
	payload, err := json.Marshal(state)
	if err != nil {
		h.logger.Error("marshal state failed", "error", err)
		return true
	}
	if _, err := c.Writer.Write([]byte("data: ")); err != nil {
		return false
	}
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	flusher.Flush()
	return true
}

// ValuationHistory lists the session's recent valuations.
func (h *Handler) ValuationHistory(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	entries, err := ws.Coordinator.History(c.Request.Context())
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// ClearValuationHistory empties the session's history.
func (h *Handler) ClearValuationHistory(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.Coordinator.ClearHistory(c.Request.Context()); err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.Status(http.StatusNoContent)
}
