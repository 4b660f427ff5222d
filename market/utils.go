package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IntervalDuration maps an interval label to a bar duration.
//
// Bare integers are minutes, which is how the candle files are named
// ("BTCUSDT_15m.csv" has interval "15"). The MetaTrader style labels
// (M1, M5, H1, H4, D1, W1) are accepted as well.
func IntervalDuration(interval string) (time.Duration, error) {
	s := strings.TrimSpace(interval)
	if s == "" {
		return 0, fmt.Errorf("empty interval")
	}

	if n, err := strconv.Atoi(strings.TrimSuffix(s, "m")); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("invalid interval %q", interval)
		}
		return time.Duration(n) * time.Minute, nil
	}

	switch strings.ToUpper(s) {
	case "M1":
		return time.Minute, nil
	case "M5":
		return 5 * time.Minute, nil
	case "M15":
		return 15 * time.Minute, nil
	case "M30":
		return 30 * time.Minute, nil
	case "H1", "1H":
		return time.Hour, nil
	case "H4", "4H":
		return 4 * time.Hour, nil
	case "D", "D1", "1D":
		return 24 * time.Hour, nil
	case "W", "W1", "1W":
		return 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval: %s", interval)
	}
}

// IntervalLabel is the inverse of IntervalDuration for minute based intervals.
func IntervalLabel(d time.Duration) (string, error) {
	if d <= 0 || d%time.Minute != 0 {
		return "", fmt.Errorf("cannot map interval: %s", d)
	}
	return strconv.Itoa(int(d / time.Minute)), nil
}

// NormalizeInterval rewrites any accepted interval label as bare minutes,
// so "1h", "H1" and "60m" all become "60".
func NormalizeInterval(interval string) (string, error) {
	d, err := IntervalDuration(interval)
	if err != nil {
		return "", err
	}
	return IntervalLabel(d)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339, the pandas "YYYY-MM-DD HH:MM:SS+00:00"
// form, or unix epoch seconds/milliseconds. Results are normalized to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Exchange APIs return epoch milliseconds.
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}
