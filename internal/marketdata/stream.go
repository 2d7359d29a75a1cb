package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// ---------------------------------------------------------------------------
// Live swap stream — real-time wallet activity over WebSocket with
// automatic reconnect and backoff
// ---------------------------------------------------------------------------

// StreamConfig configures the wallet swap stream.
type StreamConfig struct {
	Endpoint         string `yaml:"endpoint"`
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"`
	MaxReconnects    int    `yaml:"max_reconnects"` // 0 = unlimited
}

// DefaultStreamConfig returns conservative reconnect settings.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelayMs: 1000,
		MaxReconnects:    0,
	}
}

// Stream subscribes to swap events for a set of tracked wallets and
// emits them as trade events.
type Stream struct {
	config  StreamConfig
	wallets []trade.Wallet

	mu   sync.RWMutex
	conn *websocket.Conn

	out    chan trade.Event
	closed atomic.Bool

	messagesRecv atomic.Int64
	reconnects   atomic.Int64
	connected    atomic.Bool
}

// swapMessage is the wire format for one observed swap.
type swapMessage struct {
	Wallet    string    `json:"wallet"`
	Asset     string    `json:"asset"`
	Side      string    `json:"side"`
	AmountIn  string    `json:"amount_in"`
	AmountOut string    `json:"amount_out"`
	PriceUSD  string    `json:"price_usd"`
	Timestamp time.Time `json:"timestamp"`
	Venue     string    `json:"venue"`
}

// NewStream creates a stream for the given wallets.
func NewStream(config StreamConfig, wallets []trade.Wallet) *Stream {
	return &Stream{
		config:  config,
		wallets: wallets,
		out:     make(chan trade.Event, 256),
	}
}

// Start connects and begins emitting events. The returned channel
// closes when ctx is cancelled.
func (s *Stream) Start(ctx context.Context) (<-chan trade.Event, error) {
	if s.config.Endpoint == "" {
		return nil, fmt.Errorf("marketdata: stream endpoint not configured")
	}
	go s.runLoop(ctx)
	return s.out, nil
}

// Connected reports whether the stream currently has a live socket.
func (s *Stream) Connected() bool { return s.connected.Load() }

// MessagesReceived returns the lifetime message count.
func (s *Stream) MessagesReceived() int64 { return s.messagesRecv.Load() }

func (s *Stream) runLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("stream: runLoop panic recovered")
		}
		s.mu.Lock()
		if s.closed.CompareAndSwap(false, true) {
			close(s.out)
		}
		s.mu.Unlock()
	}()

	reconnectDelay := time.Duration(s.config.ReconnectDelayMs) * time.Millisecond
	maxDelay := 30 * time.Second
	reconnectCount := 0

	for {
		select {
		case <-ctx.Done():
			s.disconnect()
			return
		default:
		}

		if s.config.MaxReconnects > 0 && reconnectCount >= s.config.MaxReconnects {
			log.Error().Int("max", s.config.MaxReconnects).Msg("stream: max reconnects reached, cooling down")
			select {
			case <-time.After(60 * time.Second):
				reconnectCount = 0
				continue
			case <-ctx.Done():
				s.disconnect()
				return
			}
		}

		if err := s.connect(ctx); err != nil {
			log.Warn().Err(err).Int("attempt", reconnectCount).Msg("stream: connection failed")
			reconnectCount++
			s.reconnects.Add(1)

			select {
			case <-time.After(reconnectDelay):
				reconnectDelay *= 2
				if reconnectDelay > maxDelay {
					reconnectDelay = maxDelay
				}
			case <-ctx.Done():
				return
			}
			continue
		}

		reconnectCount = 0
		reconnectDelay = time.Duration(s.config.ReconnectDelayMs) * time.Millisecond

		if err := s.subscribe(); err != nil {
			log.Warn().Err(err).Msg("stream: subscribe failed")
		}

		s.readLoop(ctx)
	}
}

func (s *Stream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, s.config.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("stream: dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connected.Store(true)

	log.Info().Str("endpoint", s.config.Endpoint).Int("wallets", len(s.wallets)).Msg("stream: connected")
	return nil
}

func (s *Stream) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connected.Store(false)
}

func (s *Stream) subscribe() error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("stream: not connected")
	}

	addrs := make([]string, len(s.wallets))
	for i, w := range s.wallets {
		addrs[i] = string(w)
	}
	return conn.WriteJSON(map[string]any{
		"method":  "subscribe",
		"wallets": addrs,
	})
}

func (s *Stream) readLoop(ctx context.Context) {
	defer s.disconnect()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("stream: read failed, reconnecting")
			}
			return
		}
		s.messagesRecv.Add(1)

		var msg swapMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("stream: skipping malformed message")
			continue
		}
		ev, err := msg.toEvent()
		if err != nil {
			log.Debug().Err(err).Str("wallet", msg.Wallet).Msg("stream: skipping invalid swap")
			continue
		}

		select {
		case s.out <- ev:
		case <-ctx.Done():
			return
		default:
			log.Warn().Msg("stream: event buffer full, dropping swap")
		}
	}
}

func (m *swapMessage) toEvent() (trade.Event, error) {
	var side trade.Side
	switch m.Side {
	case "buy":
		side = trade.SideBuy
	case "sell":
		side = trade.SideSell
	default:
		return trade.Event{}, fmt.Errorf("unknown side %q", m.Side)
	}

	amountIn, err := decimal.NewFromString(m.AmountIn)
	if err != nil {
		return trade.Event{}, fmt.Errorf("amount_in %q: %w", m.AmountIn, err)
	}
	amountOut, err := decimal.NewFromString(m.AmountOut)
	if err != nil {
		return trade.Event{}, fmt.Errorf("amount_out %q: %w", m.AmountOut, err)
	}
	price := decimal.Zero
	if m.PriceUSD != "" {
		price, err = decimal.NewFromString(m.PriceUSD)
		if err != nil {
			return trade.Event{}, fmt.Errorf("price_usd %q: %w", m.PriceUSD, err)
		}
	}

	return trade.Event{
		ID:        uuid.New(),
		Wallet:    trade.Wallet(m.Wallet),
		Asset:     trade.Asset(m.Asset),
		Side:      side,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		PriceUSD:  price,
		Timestamp: m.Timestamp,
		Venue:     m.Venue,
	}, nil
}
