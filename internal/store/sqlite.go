// Package store persists wallet analysis history and signal records
// in SQLite for later inspection.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/audit"
	"github.com/alphatrace-trading/alphatrace/internal/trade"
	"github.com/alphatrace-trading/alphatrace/internal/wallets"
)

const schema = `
-- One row per wallet per analysis cycle
CREATE TABLE IF NOT EXISTS wallet_analyses (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    wallet       TEXT    NOT NULL,
    analyzed_at  DATETIME NOT NULL,
    total_trades INTEGER NOT NULL DEFAULT 0,
    win_rate     REAL    NOT NULL DEFAULT 0,
    total_pnl    TEXT    NOT NULL DEFAULT '0',
    smart_score  REAL    NOT NULL DEFAULT 0,
    risk_score   REAL    NOT NULL DEFAULT 0,
    is_insider   INTEGER NOT NULL DEFAULT 0,
    is_whale     INTEGER NOT NULL DEFAULT 0
);

-- Emitted convergence signals
CREATE TABLE IF NOT EXISTS signals (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    asset        TEXT    NOT NULL,
    signal_type  TEXT    NOT NULL,
    confidence   REAL    NOT NULL,
    wallet_count INTEGER NOT NULL DEFAULT 0,
    total_volume TEXT    NOT NULL DEFAULT '0',
    detected_at  DATETIME NOT NULL
);

-- Full decision audit trail
CREATE TABLE IF NOT EXISTS audit_entries (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type TEXT    NOT NULL,
    ts         DATETIME NOT NULL,
    asset      TEXT,
    decision   TEXT,
    confidence REAL    NOT NULL DEFAULT 0,
    payload    TEXT    NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_analyses_wallet ON wallet_analyses(wallet, analyzed_at DESC);
CREATE INDEX IF NOT EXISTS idx_signals_asset   ON signals(asset, detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_asset     ON audit_entries(asset, ts DESC);
`

const analysisRetention = 30 * 24 * time.Hour

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, applies the schema and
// prunes stale analysis rows.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.prune(); err != nil {
		log.Warn().Err(err).Msg("store: prune failed")
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) prune() error {
	cutoff := time.Now().Add(-analysisRetention)
	res, err := s.db.Exec(`DELETE FROM wallet_analyses WHERE analyzed_at < ?`, cutoff)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Info().Int64("rows", n).Msg("store: pruned old wallet analyses")
	}
	return nil
}

// SaveAnalysis appends one wallet analysis row.
func (s *Store) SaveAnalysis(ctx context.Context, a wallets.Analysis) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_analyses
			(wallet, analyzed_at, total_trades, win_rate, total_pnl, smart_score, risk_score, is_insider, is_whale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.Wallet), a.AnalyzedAt, a.Metrics.TotalTrades, a.Metrics.WinRate,
		a.Metrics.TotalPnL.String(), a.SmartMoneyScore, a.RiskScore,
		boolToInt(a.IsInsider), boolToInt(a.IsWhale),
	)
	if err != nil {
		return fmt.Errorf("store: save analysis for %s: %w", a.Wallet.Short(), err)
	}
	return nil
}

// SaveSignal appends one emitted signal row.
func (s *Store) SaveSignal(ctx context.Context, sig alpha.UltraSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (asset, signal_type, confidence, wallet_count, total_volume, detected_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(sig.Asset), string(sig.Type), sig.Confidence, sig.WalletCount,
		sig.TotalVolume.String(), sig.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("store: save signal for %s: %w", sig.Asset, err)
	}
	return nil
}

// AnalysisRow is a stored wallet analysis summary.
type AnalysisRow struct {
	Wallet      trade.Wallet
	AnalyzedAt  time.Time
	TotalTrades int
	WinRate     float64
	TotalPnL    string
	SmartScore  float64
	RiskScore   float64
	IsInsider   bool
	IsWhale     bool
}

// AnalysisHistory returns up to limit rows for wallet, newest first.
func (s *Store) AnalysisHistory(ctx context.Context, wallet trade.Wallet, limit int) ([]AnalysisRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet, analyzed_at, total_trades, win_rate, total_pnl, smart_score, risk_score, is_insider, is_whale
		FROM wallet_analyses
		WHERE wallet = ?
		ORDER BY analyzed_at DESC
		LIMIT ?`,
		string(wallet), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query analyses: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRow
	for rows.Next() {
		var r AnalysisRow
		var w string
		var insider, whale int
		if err := rows.Scan(&w, &r.AnalyzedAt, &r.TotalTrades, &r.WinRate, &r.TotalPnL,
			&r.SmartScore, &r.RiskScore, &insider, &whale); err != nil {
			return nil, fmt.Errorf("store: scan analysis: %w", err)
		}
		r.Wallet = trade.Wallet(w)
		r.IsInsider = insider != 0
		r.IsWhale = whale != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// SignalRow is a stored signal record.
type SignalRow struct {
	Asset       trade.Asset
	Type        string
	Confidence  float64
	WalletCount int
	TotalVolume string
	DetectedAt  time.Time
}

// RecentSignals returns up to limit signals, newest first.
func (s *Store) RecentSignals(ctx context.Context, limit int) ([]SignalRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset, signal_type, confidence, wallet_count, total_volume, detected_at
		FROM signals
		ORDER BY detected_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRow
	for rows.Next() {
		var r SignalRow
		var asset string
		if err := rows.Scan(&asset, &r.Type, &r.Confidence, &r.WalletCount, &r.TotalVolume, &r.DetectedAt); err != nil {
			return nil, fmt.Errorf("store: scan signal: %w", err)
		}
		r.Asset = trade.Asset(asset)
		out = append(out, r)
	}
	return out, rows.Err()
}

// WriteEntry persists one audit record, satisfying audit.Sink.
func (s *Store) WriteEntry(ctx context.Context, e audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (event_type, ts, asset, decision, confidence, payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventType, e.Timestamp, e.Asset, e.Decision, e.Confidence, e.Payload,
	)
	if err != nil {
		return fmt.Errorf("store: write audit entry: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
