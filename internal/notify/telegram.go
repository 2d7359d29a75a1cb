package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram sends alerts through the Telegram Bot API.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegram builds a notifier for the given bot and chat. baseURL
// overrides the API host, used by tests.
func NewTelegram(botToken, chatID, baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = defaultTelegramAPI
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *Telegram) BotStarted(ctx context.Context, startingCapital decimal.Decimal) error {
	text := fmt.Sprintf(
		"AlphaTrace started\nPaper trading with $%s",
		startingCapital.StringFixed(2),
	)
	return t.send(ctx, text)
}

func (t *Telegram) SignalDetected(ctx context.Context, sig alpha.UltraSignal) error {
	text := fmt.Sprintf(
		"ULTRA SIGNAL: %s\nConfidence: %.0f%%\nSmart wallets: %d (avg score %.2f)\nVolume: $%s",
		sig.Asset, sig.Confidence*100, sig.WalletCount, sig.AvgSmartScore, sig.TotalVolume.StringFixed(2),
	)
	return t.send(ctx, text)
}

func (t *Telegram) ScamDetected(ctx context.Context, asset trade.Asset) error {
	text := fmt.Sprintf("SCAM DETECTED: %s\nSignal skipped.", asset)
	return t.send(ctx, text)
}

func (t *Telegram) PositionOpened(ctx context.Context, pos portfolio.OpenPosition) error {
	text := fmt.Sprintf(
		"OPENED %s\nEntry: $%s\nSize: $%s\nStop: $%s | Target: $%s",
		pos.Symbol, pos.EntryPrice.String(), pos.Amount.StringFixed(2),
		pos.StopLoss.String(), pos.TakeProfit.String(),
	)
	return t.send(ctx, text)
}

func (t *Telegram) PositionClosed(ctx context.Context, tr portfolio.ClosedTrade) error {
	result := "LOSS"
	if tr.IsWin {
		result = "WIN"
	}
	text := fmt.Sprintf(
		"CLOSED %s (%s)\nEntry: $%s -> Exit: $%s\nPnL: $%s (%.1f%%)\nHeld: %d min\nReason: %s",
		tr.Symbol, result, tr.EntryPrice.String(), tr.ExitPrice.String(),
		tr.PnL.StringFixed(2), tr.PnLPct, tr.HoldMinutes, tr.Reason,
	)
	return t.send(ctx, text)
}

func (t *Telegram) SessionSummary(ctx context.Context, stats portfolio.SessionStats) error {
	text := fmt.Sprintf(
		"SESSION SUMMARY\nTrades: %d (%d W / %d L, %.1f%%)\nPnL: $%s\nPortfolio: $%s",
		stats.TotalTrades, stats.Wins, stats.Losses, stats.WinRate,
		stats.TotalPnL.StringFixed(2), stats.PortfolioValue.StringFixed(2),
	)
	return t.send(ctx, text)
}

func (t *Telegram) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify: telegram status %d: %s", resp.StatusCode, string(body))
	}

	log.Debug().Int("chars", len(text)).Msg("telegram alert sent")
	return nil
}
