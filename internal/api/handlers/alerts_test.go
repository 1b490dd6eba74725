package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse-ai/tradepulse/internal/config"
	"github.com/tradepulse-ai/tradepulse/internal/engine"
	"github.com/tradepulse-ai/tradepulse/internal/services"
)

func newTestRouter(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.EngineConfig{
		DefaultRewardRisk: 2.0,
		LearningRate:      0.05,
		DefaultTick:       0.25,
		BreakevenTicks:    4,
		TickSizes:         map[string]float64{"NQ": 0.25},
		HistoryLimit:      100,
	}
	eng := engine.New(cfg, nil, logger)
	notifier := services.NewNotificationService("", "", logger)

	handler := NewAlertHandler(eng, notifier, logger)
	router := gin.New()
	router.POST("/webhook", handler.HandleWebhook)
	router.GET("/stats", handler.GetStats)
	router.GET("/trades", handler.GetTrades)
	router.GET("/test-telegram", handler.TestTelegram)
	return router, eng
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHandleWebhook_OpenThenClose(t *testing.T) {
	router, _ := newTestRouter(t)

	openBody := map[string]any{
		"type":   "ENTRY",
		"side":   "BUY",
		"symbol": "NQ",
		"tf":     "15",
		"price":  18000,
		"sl":     17980,
		"tp":     18040,
		"score":  82,
	}
	w := postJSON(t, router, "/webhook", openBody)
	require.Equal(t, http.StatusOK, w.Code)

	var openResp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &openResp))
	assert.True(t, openResp.OK)
	assert.True(t, openResp.Result.Accepted)
	require.NotNil(t, openResp.Result.TradeID)
	require.NotNil(t, openResp.Result.Probability)
	assert.Equal(t, 0.5, *openResp.Result.Probability)

	closeBody := map[string]any{
		"type":     "TRAIL_EXIT",
		"symbol":   "NQ",
		"tf":       "15",
		"price":    18050,
		"trade_id": *openResp.Result.TradeID,
	}
	w = postJSON(t, router, "/webhook", closeBody)
	require.Equal(t, http.StatusOK, w.Code)

	var closeResp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &closeResp))
	assert.True(t, closeResp.Result.Accepted)
	require.NotNil(t, closeResp.Result.Label)
	assert.Equal(t, "WIN", string(*closeResp.Result.Label))
}

func TestHandleWebhook_NonJSONBody(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("price=18000&symbol=NQ")))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "non-JSON body", resp["error"])
}

func TestHandleWebhook_CloseWithoutEntry(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/webhook", map[string]any{
		"type":   "TRAIL_EXIT",
		"symbol": "NQ",
		"tf":     "15",
		"price":  18050,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Accepted)
	assert.Nil(t, resp.Result.Label)
	require.NotNil(t, resp.Result.Error)
	assert.Equal(t, "no linked entry", *resp.Result.Error)
}

func TestGetStats(t *testing.T) {
	router, _ := newTestRouter(t)

	postJSON(t, router, "/webhook", map[string]any{
		"type": "ENTRY", "side": "SELL", "symbol": "ES", "tf": "5",
		"price": 5200, "sl": 5210, "tp": 5180, "score": 70,
	})
	postJSON(t, router, "/webhook", map[string]any{
		"type": "TRAIL_EXIT", "symbol": "ES", "tf": "5", "price": 5170,
	})

	w := getPath(router, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["wins"])
	assert.Equal(t, float64(0), stats["losses"])
	assert.Equal(t, float64(1), stats["total"])
}

func TestGetTrades(t *testing.T) {
	router, _ := newTestRouter(t)

	postJSON(t, router, "/webhook", map[string]any{
		"type": "ENTRY", "side": "BUY", "symbol": "NQ", "tf": "15",
		"price": 18000, "sl": 17980, "tp": 18040, "score": 82,
	})

	w := getPath(router, "/trades")
	require.Equal(t, http.StatusOK, w.Code)

	var resp TradesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Open, 1)
	assert.Equal(t, "NQ", resp.Open[0].Instrument)
	assert.Empty(t, resp.Closed)
}

func TestTestTelegram_NotConfigured(t *testing.T) {
	router, _ := newTestRouter(t)

	w := getPath(router, "/test-telegram")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
