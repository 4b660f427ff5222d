package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	trade := sampleTrade("trade-12345678-abcd", time.Date(2024, 3, 15, 14, 20, 30, 0, time.UTC), 0.46)

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "** Trade: BTCUSDT LONG (trade-12)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: trade-12345678-abcd")
	assert.Contains(t, result, ":RUN_ID: run-1")
	assert.Contains(t, result, ":SYMBOL: BTCUSDT")
	assert.Contains(t, result, ":ENTRY_PRICE: 100.00000")
	assert.Contains(t, result, ":EXIT_PRICE: 105.00000")
	assert.Contains(t, result, ":OPEN_TIME: 2024-03-15T13:20:30Z")
	assert.Contains(t, result, ":CLOSE_TIME: 2024-03-15T14:20:30Z")
	assert.Contains(t, result, ":REALIZED_PL: 0.46")
	assert.Contains(t, result, ":REASON: TakeProfit")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradeOrgNegativePL(t *testing.T) {
	t.Parallel()

	trade := sampleTrade("loss", time.Now(), -500)
	assert.Contains(t, FormatTradeOrg(trade), ":REALIZED_PL: -500.00")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	trades := []TradeRecord{
		sampleTrade("trade-001", base, 2),
		sampleTrade("trade-002", base.Add(time.Hour), -1),
	}

	result := FormatTradesOrg(trades)
	assert.Contains(t, result, "trade-001")
	assert.Contains(t, result, "trade-002")

	parts := strings.Split(result, "\n\n\n")
	assert.Len(t, parts, 2, "Expected two trades separated by blank lines")

	assert.Empty(t, FormatTradesOrg(nil))
	assert.NotContains(t, FormatTradesOrg(trades[:1]), "\n\n\n")
}

func TestShortID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"long ID gets truncated", "trade-12345678-abcdef", "trade-12"},
		{"exactly 8 chars", "12345678", "12345678"},
		{"short ID unchanged", "abc", "abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, shortID(tt.input))
		})
	}
}

func TestBacktestRunWriteOrg(t *testing.T) {
	t.Parallel()

	run := BacktestRun{
		RunID:     "opt-1",
		Strategy:  "rsi-ma",
		Mode:      "walkforward",
		Symbols:   []string{"ETHUSDT"},
		Intervals: []string{"15"},
		Top:       []ResultRecord{sampleResult(3, 10000, 10100)},
		Notes:     []string{"flat market"},
	}

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteOrg(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	assert.True(t, strings.HasPrefix(s, "* OPTIMIZE: rsi-ma ETHUSDT"))
	assert.Contains(t, s, ":MODE:         walkforward")
	assert.Contains(t, s, "| 3 | BTCUSDT | 5 | short_ma=5 long_ma=30 | 10000.00 | 10100.00 |")
	assert.Contains(t, s, "- flat market")
}
