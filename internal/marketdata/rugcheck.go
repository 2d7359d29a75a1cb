package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

const defaultRugCheckURL = "https://api.rugcheck.xyz/v1"

// RugCheck screens tokens for scam and holder-concentration risk
// using the rugcheck.xyz public API. A provider outage degrades to a
// default report instead of blocking trading decisions.
type RugCheck struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	cache   *TTLCache[trade.Asset, SecurityInfo]
}

// NewRugCheck builds a client against baseURL, or the production
// endpoint when empty.
func NewRugCheck(baseURL string, now Clock) *RugCheck {
	if baseURL == "" {
		baseURL = defaultRugCheckURL
	}
	return &RugCheck{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		limiter: rate.NewLimiter(1, 2),
		cache:   NewTTLCache[trade.Asset, SecurityInfo](5*time.Minute, now),
	}
}

type rugCheckResponse struct {
	Score      *float64  `json:"score"`
	Risks      []rugRisk `json:"risks"`
	TopHolders []struct {
		Address    string  `json:"address"`
		Percentage float64 `json:"percentage"`
	} `json:"topHolders"`
	Markets []struct {
		LP struct {
			Locked bool `json:"lpLocked"`
		} `json:"lp"`
	} `json:"markets"`
}

type rugRisk struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       string `json:"level"`
}

// Security returns the screening report for asset. Non-200 provider
// responses degrade to a default medium-risk report.
func (r *RugCheck) Security(ctx context.Context, asset trade.Asset) (SecurityInfo, error) {
	if info, ok := r.cache.Get(asset); ok {
		return info, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return SecurityInfo{}, newError(KindTimeout, "rugcheck", err)
	}

	url := fmt.Sprintf("%s/tokens/%s/report", r.baseURL, asset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return SecurityInfo{}, newError(KindFetch, "rugcheck", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return SecurityInfo{}, newError(KindTimeout, "rugcheck", err)
		}
		return SecurityInfo{}, newError(KindFetch, "rugcheck", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Str("asset", string(asset)).Int("status", resp.StatusCode).Msg("rugcheck unavailable, using default security report")
		return SecurityInfo{Risk: RiskMedium}, nil
	}

	var body rugCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return SecurityInfo{}, newError(KindParse, "rugcheck", err)
	}

	info := parseRugCheck(&body)
	r.cache.Set(asset, info)
	return info, nil
}

func parseRugCheck(body *rugCheckResponse) SecurityInfo {
	info := SecurityInfo{Risk: RiskLow}

	for _, risk := range body.Risks {
		switch risk.Level {
		case "danger", "critical":
			info.IsScam = true
			info.Risk = RiskCritical
		case "warn", "warning":
			if info.Risk == RiskLow {
				info.Risk = RiskMedium
			}
		}
		if strings.Contains(strings.ToLower(risk.Name), "bundle") ||
			strings.Contains(strings.ToLower(risk.Description), "bundl") {
			info.IsBundle = true
		}
	}

	for i, h := range body.TopHolders {
		if i >= 10 {
			break
		}
		info.TopHoldersPercentage += h.Percentage
	}
	if info.TopHoldersPercentage > 80 {
		info.IsBundle = true
		if info.Risk < RiskHigh {
			info.Risk = RiskHigh
		}
	}

	if len(body.Markets) > 0 {
		info.LPLocked = body.Markets[0].LP.Locked
		if info.LPLocked && info.Risk == RiskMedium {
			info.Risk = RiskLow
		}
	}

	if body.Score != nil {
		score := *body.Score / 100
		info.RugcheckScore = &score
		if *body.Score < 30 {
			info.IsScam = true
			info.Risk = RiskCritical
		}
	}

	return info
}
