package observ

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// QueryCounters accumulates statistics for one query kind. All fields are
// updated atomically so the store can bump them without holding its locks.
type QueryCounters struct {
	Executions    atomic.Int64 // function bodies actually run
	Hits          atomic.Int64 // memo returned on the green path
	Verifications atomic.Int64 // deep verifications that succeeded without re-running
	Backdates     atomic.Int64 // re-runs that produced an equal value
	Recoveries    atomic.Int64 // cycle fallbacks substituted
	Cancellations atomic.Int64 // evaluations abandoned because of a pending write
}

// Snapshot copies the counters into a QueryStats value.
func (c *QueryCounters) Snapshot(name string) QueryStats {
	return QueryStats{
		Name:          name,
		Executions:    c.Executions.Load(),
		Hits:          c.Hits.Load(),
		Verifications: c.Verifications.Load(),
		Backdates:     c.Backdates.Load(),
		Recoveries:    c.Recoveries.Load(),
		Cancellations: c.Cancellations.Load(),
	}
}

// QueryStats is an immutable copy of QueryCounters.
type QueryStats struct {
	Name          string `json:"name"`
	Executions    int64  `json:"executions"`
	Hits          int64  `json:"hits"`
	Verifications int64  `json:"verifications"`
	Backdates     int64  `json:"backdates"`
	Recoveries    int64  `json:"recoveries"`
	Cancellations int64  `json:"cancellations"`
}

// QueryReport is the per-kind statistics of one database.
type QueryReport struct {
	Revision uint64       `json:"revision"`
	Queries  []QueryStats `json:"queries"`
}

// Sorted returns the report's entries ordered by executions (desc), then name.
func (r QueryReport) Sorted() []QueryStats {
	out := append([]QueryStats(nil), r.Queries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Executions != out[j].Executions {
			return out[i].Executions > out[j].Executions
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Find returns the stats for the named query kind.
func (r QueryReport) Find(name string) (QueryStats, bool) {
	for _, q := range r.Queries {
		if q.Name == name {
			return q, true
		}
	}
	return QueryStats{}, false
}

// Summary renders the non-idle kinds as an aligned table.
func (r QueryReport) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "queries (revision %d):\n", r.Revision)
	fmt.Fprintf(&sb, "  %-32s %6s %6s %6s %6s %6s %6s\n", "kind", "exec", "hit", "verif", "bdate", "cycle", "cncl")
	for _, q := range r.Sorted() {
		if q.Executions == 0 && q.Hits == 0 && q.Verifications == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  %-32s %6d %6d %6d %6d %6d %6d\n",
			q.Name, q.Executions, q.Hits, q.Verifications, q.Backdates, q.Recoveries, q.Cancellations)
	}
	return sb.String()
}
