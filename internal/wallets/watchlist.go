package wallets

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// LoadWatchlist reads tracked wallet addresses from a newline
// delimited file. Blank lines and lines starting with '#' are
// ignored. Entries containing whitespace are malformed and are
// logged then skipped rather than failing the whole load. Duplicates
// collapse to one entry, first occurrence wins. A missing file is
// seeded with a comment header so the operator has something to edit,
// and loads as empty.
func LoadWatchlist(path string) ([]trade.Wallet, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		if werr := os.WriteFile(path, []byte("# Add wallet addresses here, one per line\n"), 0o644); werr != nil {
			return nil, fmt.Errorf("wallets: seed watchlist: %w", werr)
		}
		log.Warn().Str("file", path).Msg("watchlist missing, seeded an empty one")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wallets: open watchlist: %w", err)
	}
	defer f.Close()

	var (
		out  []trade.Wallet
		seen = make(map[trade.Wallet]struct{})
	)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.ContainsAny(line, " \t") {
			log.Warn().
				Str("file", path).
				Int("line", lineNo).
				Str("entry", line).
				Msg("skipping malformed watchlist entry")
			continue
		}

		w := trade.Wallet(line)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("wallets: read watchlist: %w", err)
	}

	log.Info().Str("file", path).Int("wallets", len(out)).Msg("watchlist loaded")
	return out, nil
}
