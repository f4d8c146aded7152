package router

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wren/internal/config"
	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/logging"
	"wren/pkg/models"
)

type Handler struct {
	chain  *Chain
	store  *config.Store
	logger logger.Logger
}

func NewHandler(chain *Chain, store *config.Store, log logger.Logger) *Handler {
	return &Handler{
		chain:  chain,
		store:  store,
		logger: log,
	}
}

// RegisterRoutes mounts one webhook route per provider enabled at startup.
// A provider disabled by a later reload keeps its route but every delivery
// is rejected during signature validation.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	webhooks := router.Group("/webhooks")
	for _, provider := range h.store.Current().EnabledProviders() {
		p := provider
		webhooks.POST("/"+p.String(), func(c *gin.Context) {
			h.handleWebhook(c, p)
		})
	}
}

// handleWebhook godoc
// @Summary      Receive a webhook delivery
// @Description  Validates, classifies, and routes one provider delivery; a non-2xx response asks the provider to redeliver
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        provider  path      string  true  "Provider name (github, gitlab, bitbucket, gerrit)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      401  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      502  {object}  errors.ErrorResponse
// @Failure      504  {object}  errors.ErrorResponse
// @Router       /webhooks/{provider} [post]
func (h *Handler) handleWebhook(c *gin.Context, provider models.Provider) {
	maxBytes := h.store.Current().Server.MaxBodyBytes

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errors.ToErrorResponse(
				errors.ErrValidation.WithDetail("message", "request body exceeds size limit")))
			return
		}
		h.respondError(c, errors.ErrValidation.WithCause(err))
		return
	}

	event := models.NewWebhookEvent(uuid.NewString(), provider, c.Request.Header, body)

	// The request context carries through the chain, so a provider that
	// gives up on the delivery cancels in-flight work.
	ctx := logging.WithEventID(c.Request.Context(), event.ID)
	ctx = logging.WithProvider(ctx, provider.String())

	result, err := h.chain.Process(ctx, event)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !result.Dispatched {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ignored",
			"event_id": event.ID,
			"reason":   discardReason(result.Classification),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "dispatched",
		"event_id": event.ID,
		"token":    result.Ack.Token,
		"category": result.Classification.Category,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "webhook rejected",
		"error", err,
		"path", c.Request.URL.Path,
	)

	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func discardReason(classification models.ClassificationResult) string {
	if classification.MatchedRule != "" {
		return "rule evaluation failed"
	}
	return "no rule matched the delivery"
}
