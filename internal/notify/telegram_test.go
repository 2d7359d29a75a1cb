package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
)

func TestTelegram_SignalDetected(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("token-123", "chat-9", srv.URL)

	err := tg.SignalDetected(context.Background(), alpha.UltraSignal{
		Asset:         "TOK",
		Confidence:    0.95,
		WalletCount:   3,
		AvgSmartScore: 0.87,
		TotalVolume:   decimal.NewFromInt(600),
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottoken-123/sendMessage", gotPath)
	assert.Equal(t, "chat-9", gotBody["chat_id"])
	assert.Contains(t, gotBody["text"], "TOK")
	assert.Contains(t, gotBody["text"], "95%")
}

func TestTelegram_PositionClosed(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "chat", srv.URL)

	err := tg.PositionClosed(context.Background(), portfolio.ClosedTrade{
		Symbol:     "TST",
		IsWin:      true,
		PnL:        decimal.NewFromInt(42),
		EntryPrice: decimal.NewFromInt(1),
		ExitPrice:  decimal.NewFromInt(2),
		Reason:     "TAKE_PROFIT",
	})
	require.NoError(t, err)

	assert.Contains(t, gotBody["text"], "WIN")
	assert.Contains(t, gotBody["text"], "TAKE_PROFIT")
}

func TestTelegram_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "chat", srv.URL)

	err := tg.SessionSummary(context.Background(), portfolio.SessionStats{
		TotalPnL:       decimal.Zero,
		PortfolioValue: decimal.Zero,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
