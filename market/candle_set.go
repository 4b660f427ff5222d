package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when no candle file exists for a symbol/interval.
var ErrNotFound = errors.New("candle file not found")

// ErrDataGap is returned when a candle series has missing bars.
var ErrDataGap = errors.New("candle series has gaps")

// ErrEmpty is returned when a candle file holds no usable rows.
var ErrEmpty = errors.New("no candles")

// RequiredColumns is the candle file header, in any column order.
var RequiredColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// CandleSet is a loaded candle series for one symbol and interval.
type CandleSet struct {
	Symbol    string
	Interval  string
	Timeframe time.Duration
	Candles   []Candle

	Filepath string
	Gaps     []Gap

	duplicates int
	badLines   int
	unsorted   bool
}

// Gap is a run of missing bars between two present candles.
type Gap struct {
	After   time.Time // last candle before the gap
	Before  time.Time // first candle after the gap
	Missing int       // number of missing intervals
	Kind    string    // outage, major or minor
}

// Gap kinds. Crypto markets never close, so every gap is missing data.
const (
	GapOutage = "outage" // a day or more
	GapMajor  = "major"  // ten bars or more
	GapMinor  = "minor"
)

type GapStats struct {
	Candles        int
	Missing        int
	GapCount       int
	Outages        int
	MajorGaps      int
	LongestGap     int
	LongestGapKind string
}

// Dir resolves candle files laid out as <Root>/<SYMBOL>_<interval>m.csv.
type Dir struct {
	Root string
}

func (d Dir) Path(symbol, interval string) string {
	label, err := NormalizeInterval(interval)
	if err != nil {
		label = strings.TrimSuffix(interval, "m")
	}
	return filepath.Join(d.Root, fmt.Sprintf("%s_%sm.csv", symbol, label))
}

// Load reads and gap-checks the candle file for symbol/interval.
func (d Dir) Load(symbol, interval string) (*CandleSet, error) {
	path := d.Path(symbol, interval)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	return LoadCandleSet(path, symbol, interval)
}

// LoadCandleSet reads a CSV file and builds its gap report.
func LoadCandleSet(path, symbol, interval string) (*CandleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cs, err := ReadCandleSet(f, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cs.Filepath = path
	return cs, nil
}

// ReadCandleSet parses candle rows from r. Rows are sorted by time if the
// source is out of order; duplicate timestamps keep the first row.
func ReadCandleSet(r io.Reader, symbol, interval string) (*CandleSet, error) {
	tf, err := IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	label, err := IntervalLabel(tf)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	cs := &CandleSet{
		Symbol:    symbol,
		Interval:  label,
		Timeframe: tf,
	}

	seen := make(map[int64]struct{})
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		c, ok := parseCandleRow(row, cols)
		if !ok {
			cs.badLines++
			continue
		}
		key := c.Time.UnixNano()
		if _, dup := seen[key]; dup {
			cs.duplicates++
			continue
		}
		seen[key] = struct{}{}

		if n := len(cs.Candles); n > 0 && c.Time.Before(cs.Candles[n-1].Time) {
			cs.unsorted = true
		}
		cs.Candles = append(cs.Candles, c)
	}

	if len(cs.Candles) == 0 {
		return nil, ErrEmpty
	}
	if cs.unsorted {
		sort.SliceStable(cs.Candles, func(i, j int) bool {
			return cs.Candles[i].Time.Before(cs.Candles[j].Time)
		})
	}

	cs.BuildGapReport()
	return cs, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, want := range RequiredColumns {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ","))
	}
	return cols, nil
}

func parseCandleRow(row []string, cols map[string]int) (Candle, bool) {
	get := func(name string) (string, bool) {
		i := cols[name]
		if i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	ts, ok := get("timestamp")
	if !ok {
		return Candle{}, false
	}
	t, err := ParseTimestamp(ts)
	if err != nil {
		return Candle{}, false
	}

	var vals [5]float64
	for i, name := range []string{"open", "high", "low", "close", "volume"} {
		s, ok := get(name)
		if !ok {
			return Candle{}, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Candle{}, false
		}
		vals[i] = v
	}

	return Candle{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true
}

// BuildGapReport records every spacing larger than the timeframe plus 10%
// tolerance for exchange timestamp jitter.
func (cs *CandleSet) BuildGapReport() {
	cs.Gaps = cs.Gaps[:0]
	if cs.Timeframe <= 0 || len(cs.Candles) < 2 {
		return
	}

	tolerance := cs.Timeframe + cs.Timeframe/10
	for i := 1; i < len(cs.Candles); i++ {
		prev, cur := cs.Candles[i-1].Time, cs.Candles[i].Time
		delta := cur.Sub(prev)
		if delta <= tolerance {
			continue
		}
		missing := int(delta/cs.Timeframe) - 1
		if missing < 1 {
			missing = 1
		}
		cs.Gaps = append(cs.Gaps, Gap{
			After:   prev,
			Before:  cur,
			Missing: missing,
			Kind:    classifyGap(delta, missing),
		})
	}
}

func classifyGap(delta time.Duration, missing int) string {
	switch {
	case delta >= 24*time.Hour:
		return GapOutage
	case missing >= 10:
		return GapMajor
	}
	return GapMinor
}

func (cs *CandleSet) Stats() GapStats {
	s := GapStats{Candles: len(cs.Candles)}
	for _, g := range cs.Gaps {
		s.GapCount++
		s.Missing += g.Missing
		if g.Missing > s.LongestGap {
			s.LongestGap = g.Missing
			s.LongestGapKind = g.Kind
		}
		switch g.Kind {
		case GapOutage:
			s.Outages++
		case GapMajor:
			s.MajorGaps++
		}
	}
	return s
}

// Warnings reports ingest problems that were repaired while loading.
func (cs *CandleSet) Warnings() (duplicates, badLines int, unsorted bool) {
	return cs.duplicates, cs.badLines, cs.unsorted
}

func (cs *CandleSet) Len() int { return len(cs.Candles) }

func (cs *CandleSet) PrintStats(w io.Writer) {
	s := cs.Stats()
	first, last, _ := Span(cs.Candles)

	fmt.Fprintf(w, "---- %s %sm ----\n", cs.Symbol, cs.Interval)
	fmt.Fprintf(w, "Range: %s → %s\n", first.Format(time.RFC3339), last.Format(time.RFC3339))
	fmt.Fprintf(w, "         Candles: %d\n", s.Candles)
	fmt.Fprintf(w, "  Missing Candles: %d\n", s.Missing)
	fmt.Fprintf(w, "       Total Gaps: %d\n", s.GapCount)
	fmt.Fprintf(w, "          Outages: %d\n", s.Outages)
	fmt.Fprintf(w, "       Major Gaps: %d\n", s.MajorGaps)
	fmt.Fprintf(w, "Longest Gap: %d bars (%s)\n", s.LongestGap, s.LongestGapKind)
	if cs.duplicates > 0 || cs.badLines > 0 || cs.unsorted {
		fmt.Fprintf(w, "ingest warnings: duplicates=%d badLines=%d unsorted=%t\n",
			cs.duplicates, cs.badLines, cs.unsorted)
	}
}

// LoadCSV reads a candle file without symbol or interval metadata.
func LoadCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Read at the finest interval; the gap report is not used here.
	cs, err := ReadCandleSet(f, "", "1")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cs.Candles, nil
}

// CheckGaps returns an error wrapping ErrDataGap if the series is missing
// any bars.
func (cs *CandleSet) CheckGaps() error {
	if len(cs.Gaps) == 0 {
		return nil
	}
	s := cs.Stats()
	return fmt.Errorf("%d gaps, %d missing candles, longest %d bars: %w",
		s.GapCount, s.Missing, s.LongestGap, ErrDataGap)
}

// GapReport builds the gap list for an already loaded series.
func GapReport(candles []Candle, interval string) ([]Gap, error) {
	tf, err := IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	cs := &CandleSet{Interval: interval, Timeframe: tf, Candles: candles}
	cs.BuildGapReport()
	return cs.Gaps, nil
}
