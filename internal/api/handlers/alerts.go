package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse-ai/tradepulse/internal/engine"
	"github.com/tradepulse-ai/tradepulse/internal/models"
	"github.com/tradepulse-ai/tradepulse/internal/services"
)

// rawBodyPreviewLimit bounds how much of a non-JSON body is forwarded to the
// notification channel.
const rawBodyPreviewLimit = 1800

// AlertHandler serves the alert ingestion endpoint and the read-only views
// over the engine's state.
type AlertHandler struct {
	engine   *engine.Engine
	notifier *services.NotificationService
	logger   *logrus.Logger
}

// NewAlertHandler wires the handler to the engine and notifier.
func NewAlertHandler(eng *engine.Engine, notifier *services.NotificationService, logger *logrus.Logger) *AlertHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &AlertHandler{engine: eng, notifier: notifier, logger: logger}
}

// WebhookResponse is the wire shape returned for each inbound alert.
type WebhookResponse struct {
	OK     bool                 `json:"ok"`
	Result models.ProcessResult `json:"result"`
}

// HandleWebhook ingests one alert record. The body must be a JSON object;
// field values inside it may be arbitrarily loose, normalization handles
// that. A non-JSON body is the one transport-level rejection.
func (h *AlertHandler) HandleWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable body"})
		return
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var record map[string]any
	if err := decoder.Decode(&record); err != nil || record == nil {
		preview := string(raw)
		if len(preview) > rawBodyPreviewLimit {
			preview = preview[:rawBodyPreviewLimit]
		}
		h.logger.WithField("body_bytes", len(raw)).Warn("Non-JSON alert body")
		if sendErr := h.notifier.Send(c.Request.Context(), "⚠️ NON-JSON ALERT BODY:\n"+preview); sendErr != nil {
			h.logger.WithError(sendErr).Debug("Raw-body warning not delivered")
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "non-JSON body"})
		return
	}

	result := h.engine.Process(c.Request.Context(), record)
	h.notifier.NotifyResult(c.Request.Context(), result, h.engine.Stats())

	c.JSON(http.StatusOK, WebhookResponse{OK: true, Result: result})
}

// GetStats serves the aggregate win/loss counters and per-partition model
// sample counts.
func (h *AlertHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}

// TradesResponse lists open trades and recent closed history.
type TradesResponse struct {
	Open      []*models.Trade `json:"open"`
	Closed    []*models.Trade `json:"closed"`
	Timestamp time.Time       `json:"timestamp"`
}

// GetTrades serves the current open trades plus recent closed ones.
func (h *AlertHandler) GetTrades(c *gin.Context) {
	c.JSON(http.StatusOK, TradesResponse{
		Open:      h.engine.OpenTrades(),
		Closed:    h.engine.History(50),
		Timestamp: time.Now().UTC(),
	})
}

// TestTelegram delivers a test notification and reports delivery status.
func (h *AlertHandler) TestTelegram(c *gin.Context) {
	if !h.notifier.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "telegram not configured"})
		return
	}
	if err := h.notifier.SendTest(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
