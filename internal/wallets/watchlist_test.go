package wallets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

func TestLoadWatchlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.txt")
	content := `# tracked wallets
wallet-one

wallet-two
bad entry with spaces
wallet-one
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadWatchlist(path)
	require.NoError(t, err)

	assert.Equal(t, []trade.Wallet{"wallet-one", "wallet-two"}, got)
}

func TestLoadWatchlist_MissingFileIsSeeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.txt")

	got, err := LoadWatchlist(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	// The file was created with a comment header for the operator.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#")

	// A second load reads the seeded file normally.
	got, err = LoadWatchlist(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
