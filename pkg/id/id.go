package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// ulid.Monotonic keeps IDs generated within the same millisecond
	// lexicographically increasing, which keeps journal rows in insert order.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string stamped with the current wall clock.
func New() string {
	return At(time.Now())
}

// At returns a ULID whose timestamp component is t. Backtests use the
// simulated close time so trade IDs sort by market time, not run time.
func At(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// Only possible when entropy fails or t predates the unix epoch.
		id = ulid.Make()
	}
	return id.String()
}

// Run returns an identifier for an optimization or backtest run,
// e.g. "opt-01HZY3...". An empty prefix yields a bare ULID.
func Run(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return New()
	}
	return prefix + "-" + New()
}
