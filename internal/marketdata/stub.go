package marketdata

import (
	"context"
	"sync"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// StubSource is an in-memory source for tests and dry runs. It
// implements MarketSource, SecuritySource and TradeSource.
type StubSource struct {
	mu       sync.RWMutex
	tokens    map[trade.Asset]Token
	security  map[trade.Asset]SecurityInfo
	trades    map[trade.Wallet][]trade.Event
	errs      map[trade.Asset]error
	tradeErrs map[trade.Wallet]error
}

func NewStubSource() *StubSource {
	return &StubSource{
		tokens:    make(map[trade.Asset]Token),
		security:  make(map[trade.Asset]SecurityInfo),
		trades:    make(map[trade.Wallet][]trade.Event),
		errs:      make(map[trade.Asset]error),
		tradeErrs: make(map[trade.Wallet]error),
	}
}

// SetToken registers a market snapshot for asset.
func (s *StubSource) SetToken(tok Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.Asset] = tok
}

// SetSecurity registers a security report for asset.
func (s *StubSource) SetSecurity(asset trade.Asset, info SecurityInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.security[asset] = info
}

// SetTrades registers recent events for wallet.
func (s *StubSource) SetTrades(wallet trade.Wallet, events []trade.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[wallet] = events
}

// FailToken makes Token return err for asset.
func (s *StubSource) FailToken(asset trade.Asset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[asset] = err
}

func (s *StubSource) Token(_ context.Context, asset trade.Asset) (Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.errs[asset]; ok {
		return Token{}, err
	}
	tok, ok := s.tokens[asset]
	if !ok {
		return Token{}, newError(KindFetch, "stub", errNotFound(asset))
	}
	return tok, nil
}

func (s *StubSource) Security(_ context.Context, asset trade.Asset) (SecurityInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.security[asset]
	if !ok {
		return SecurityInfo{Risk: RiskLow}, nil
	}
	return info, nil
}

// FailTrades makes RecentTrades return err for wallet.
func (s *StubSource) FailTrades(wallet trade.Wallet, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradeErrs[wallet] = err
}

func (s *StubSource) RecentTrades(_ context.Context, wallet trade.Wallet) ([]trade.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.tradeErrs[wallet]; ok {
		return nil, err
	}
	events := s.trades[wallet]
	out := make([]trade.Event, len(events))
	copy(out, events)
	return out, nil
}

type errNotFound trade.Asset

func (e errNotFound) Error() string { return "no data for " + string(e) }
