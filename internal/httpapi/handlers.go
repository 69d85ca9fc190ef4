package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/blackfuel-ai/claudish/internal/anchor"
	"github.com/blackfuel-ai/claudish/internal/dispatch"
	"github.com/blackfuel-ai/claudish/internal/monitor"
	"github.com/blackfuel-ai/claudish/internal/usage"
	apierrors "github.com/blackfuel-ai/claudish/pkg/errors"
)

type handlers struct {
	dispatcher *dispatch.Dispatcher
	monitor    *monitor.Monitor
	logger     *zap.Logger
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// messages is POST /v1/messages: the main Anchor-to-backend streaming path,
// or a raw pass-through when running under Monitor Mode (spec.md §4.6).
func (h *handlers) messages(c *gin.Context) {
	if h.monitor != nil {
		h.monitor.Proxy(c.Writer, c.Request)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeJSONError(c, apierrors.Validation("could not read request body: %v", err))
		return
	}
	var req anchor.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONError(c, apierrors.Validation("could not parse request body: %v", err))
		return
	}
	req.Raw = body
	if req.Model == "" {
		writeJSONError(c, apierrors.Validation("model is required"))
		return
	}

	if err := h.dispatcher.Dispatch(c.Request.Context(), c.Writer, req); err != nil {
		if ae, ok := apierrors.As(err); ok {
			writeJSONError(c, ae)
			return
		}
		writeJSONError(c, apierrors.Wrap(apierrors.KindAPI, "internal error", err))
	}
}

// countTokens is POST /v1/messages/count_tokens: a character-based estimate
// of the request's size, using the same heuristic as usage accounting
// (spec.md §4.4).
func (h *handlers) countTokens(c *gin.Context) {
	var req anchor.Request
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		writeJSONError(c, apierrors.Validation("could not parse request body: %v", err))
		return
	}

	chars := len(req.System)
	for _, t := range req.Tools {
		chars += len(t.Name) + len(t.Description) + len(t.InputSchema)
	}
	for _, m := range req.Messages {
		chars += len(m.Content)
	}

	c.JSON(http.StatusOK, gin.H{"input_tokens": usage.EstimateTokensFromChars(chars)})
}

// models is GET /v1/models: a synthetic single-entry catalog, since claudish
// routes by the model id the caller already names rather than offering a
// discoverable list of backend models.
func (h *handlers) models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": []gin.H{
			{"id": "claudish-routed", "object": "model"},
		},
	})
}

func writeJSONError(c *gin.Context, ae *apierrors.AnchorError) {
	c.JSON(ae.HTTPStatus(), gin.H{"type": "error", "error": ae.Event()})
}
