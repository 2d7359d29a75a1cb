package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alphatrace-trading/alphatrace/internal/chart"
	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

const (
	defaultDexScreenerURL = "https://api.dexscreener.com/latest"

	// Free tier allows roughly 300 requests per minute.
	dexRatePerSec = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// DexScreener fetches token market snapshots from the DexScreener
// public API, with a TTL cache in front and a circuit breaker plus
// rate limiter around the HTTP calls.
type DexScreener struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   *TTLCache[trade.Asset, Token]
	now     Clock
}

// NewDexScreener builds a client against baseURL, or the production
// endpoint when empty.
func NewDexScreener(baseURL string, now Clock) *DexScreener {
	if baseURL == "" {
		baseURL = defaultDexScreenerURL
	}
	if now == nil {
		now = time.Now
	}

	st := gobreaker.Settings{Name: "dexscreener"}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}
	st.Timeout = 30 * time.Second

	return &DexScreener{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		limiter: rate.NewLimiter(dexRatePerSec, 5),
		breaker: gobreaker.NewCircuitBreaker(st),
		cache:   NewTTLCache[trade.Asset, Token](time.Minute, now),
		now:     now,
	}
}

type dexPairResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  string `json:"priceUsd"`
	DexID     string `json:"dexId"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		M5  float64 `json:"m5"`
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
}

// Token returns the market snapshot for asset, from cache when fresh.
func (d *DexScreener) Token(ctx context.Context, asset trade.Asset) (Token, error) {
	if tok, ok := d.cache.Get(asset); ok {
		return tok, nil
	}

	url := fmt.Sprintf("%s/dex/tokens/%s", d.baseURL, asset)

	var resp dexPairResponse
	if err := d.get(ctx, url, &resp); err != nil {
		return Token{}, err
	}

	if len(resp.Pairs) == 0 {
		return Token{}, newError(KindFetch, "dexscreener", fmt.Errorf("no pairs for %s", asset))
	}

	tok, err := d.parsePair(asset, &resp.Pairs[0])
	if err != nil {
		return Token{}, err
	}

	d.cache.Set(asset, tok)
	return tok, nil
}

func (d *DexScreener) parsePair(asset trade.Asset, p *dexPair) (Token, error) {
	price := decimal.Zero
	if p.PriceUSD != "" {
		var err error
		price, err = decimal.NewFromString(p.PriceUSD)
		if err != nil {
			return Token{}, newError(KindParse, "dexscreener", fmt.Errorf("price %q: %w", p.PriceUSD, err))
		}
	}

	liquidity := decimal.NewFromFloat(p.Liquidity.USD)

	return Token{
		Asset:  asset,
		Symbol: p.BaseToken.Symbol,
		Name:   p.BaseToken.Name,
		Market: chart.Snapshot{
			PriceUSD:       price,
			PriceChange5m:  p.PriceChange.M5,
			PriceChange1h:  p.PriceChange.H1,
			PriceChange24h: p.PriceChange.H24,
			Volume24h:      decimal.NewFromFloat(p.Volume.H24),
			LiquidityUSD:   liquidity,
		},
		// Rough proxy: paired liquidity counted on both sides.
		MarketCap: liquidity.Mul(decimal.NewFromInt(2)),
		Venue:     p.DexID,
		FetchedAt: d.now().UTC(),
	}, nil
}

// get runs a rate-limited GET through the breaker with exponential
// backoff on transient failures.
func (d *DexScreener) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return newError(KindTimeout, "dexscreener", err)
		}

		_, err := d.breaker.Execute(func() (any, error) {
			return nil, d.doOnce(ctx, url, out)
		})
		if err == nil {
			return nil
		}

		var mdErr *Error
		retryable := false
		if e, ok := err.(*Error); ok {
			mdErr = e
			retryable = e.Retryable()
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			retryable = true
			mdErr = newRetryableError(KindRateLimit, "dexscreener", err)
		}

		if !retryable || attempt == maxRetries {
			if mdErr != nil {
				return mdErr
			}
			return newError(KindFetch, "dexscreener", err)
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
		log.Debug().Str("url", url).Int("attempt", attempt+1).Dur("wait", wait).Msg("retrying dexscreener request")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return newError(KindTimeout, "dexscreener", ctx.Err())
		}
	}
	return newError(KindFetch, "dexscreener", fmt.Errorf("exhausted %d retries", maxRetries))
}

func (d *DexScreener) doOnce(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newError(KindFetch, "dexscreener", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return newError(KindTimeout, "dexscreener", err)
		}
		return newRetryableError(KindFetch, "dexscreener", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return newRetryableError(KindRateLimit, "dexscreener", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return newRetryableError(KindFetch, "dexscreener", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return newError(KindFetch, "dexscreener", fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(KindParse, "dexscreener", err)
	}
	return nil
}
