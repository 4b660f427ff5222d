package strategies

import (
	"sort"

	"github.com/rustyeddy/gridtrader/sim"
)

// sortEvents orders by time, keeping emission order for equal times.
func sortEvents(evs []sim.Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].Time.Before(evs[j].Time)
	})
}
