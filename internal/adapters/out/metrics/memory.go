// Package metrics provides ports.MetricsSink implementations: an in-process sink that
// backs the /metrics endpoint, a CloudWatch sink flushed on a schedule, and helpers to
// combine or disable them.
package metrics

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"
)

// latencyWindow is how many recent request latencies feed the p95.
const latencyWindow = 1000

// MemorySink aggregates measurements in process. It is safe for concurrent use.
type MemorySink struct {
	mu sync.Mutex

	startedAt time.Time
	now       func() time.Time

	requests       int64
	byMethod       map[string]int64
	byRoute        map[string]int64
	byStatus       map[string]int64
	clientErrors   int64
	serverErrors   int64
	latency        latencyStats
	recent         []float64
	recentNext     int
	storeOps       map[string]*storeStats
	storeOpsTotal  int64
	storeOpsFailed int64
}

type latencyStats struct {
	count int64
	sumMs float64
	minMs float64
	maxMs float64
}

type storeStats struct {
	count  int64
	errors int64
	sumMs  float64
	maxMs  float64
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return newMemorySink(time.Now)
}

func newMemorySink(now func() time.Time) *MemorySink {
	return &MemorySink{
		startedAt: now(),
		now:       now,
		byMethod:  make(map[string]int64),
		byRoute:   make(map[string]int64),
		byStatus:  make(map[string]int64),
		recent:    make([]float64, 0, latencyWindow),
		storeOps:  make(map[string]*storeStats),
		latency:   latencyStats{minMs: math.Inf(1)},
	}
}

// RecordHTTPRequest implements ports.MetricsSink.
func (s *MemorySink) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	ms := toMillis(latency)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	s.byMethod[method]++
	s.byRoute[method+" "+route]++
	s.byStatus[strconv.Itoa(status)]++
	switch {
	case status >= 500:
		s.serverErrors++
	case status >= 400:
		s.clientErrors++
	}

	s.latency.count++
	s.latency.sumMs += ms
	s.latency.minMs = math.Min(s.latency.minMs, ms)
	s.latency.maxMs = math.Max(s.latency.maxMs, ms)

	if len(s.recent) < latencyWindow {
		s.recent = append(s.recent, ms)
	} else {
		s.recent[s.recentNext] = ms
		s.recentNext = (s.recentNext + 1) % latencyWindow
	}
}

// RecordStoreOperation implements ports.MetricsSink.
func (s *MemorySink) RecordStoreOperation(operation string, latency time.Duration, err error) {
	ms := toMillis(latency)

	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.storeOps[operation]
	if !ok {
		stats = &storeStats{}
		s.storeOps[operation] = stats
	}
	stats.count++
	stats.sumMs += ms
	stats.maxMs = math.Max(stats.maxMs, ms)
	s.storeOpsTotal++
	if err != nil {
		stats.errors++
		s.storeOpsFailed++
	}
}

// Snapshot is a point-in-time copy of everything a MemorySink has aggregated.
type Snapshot struct {
	Timestamp     time.Time                  `json:"timestamp"`
	UptimeSeconds float64                    `json:"uptimeSeconds"`
	HTTP          HTTPSnapshot               `json:"http"`
	Latency       LatencySnapshot            `json:"responseTimes"`
	Store         map[string]StoreOpSnapshot `json:"store"`
	StoreTotals   StoreOpSnapshot            `json:"storeTotals"`
}

type HTTPSnapshot struct {
	Total        int64            `json:"total"`
	ByMethod     map[string]int64 `json:"byMethod"`
	ByRoute      map[string]int64 `json:"byRoute"`
	ByStatus     map[string]int64 `json:"byStatus"`
	ClientErrors int64            `json:"clientErrors"`
	ServerErrors int64            `json:"serverErrors"`
}

type LatencySnapshot struct {
	Count int64   `json:"count"`
	MinMs float64 `json:"minMs"`
	MaxMs float64 `json:"maxMs"`
	AvgMs float64 `json:"avgMs"`
	P95Ms float64 `json:"p95Ms"`
}

type StoreOpSnapshot struct {
	Count  int64   `json:"count"`
	Errors int64   `json:"errors"`
	AvgMs  float64 `json:"avgMs,omitempty"`
	MaxMs  float64 `json:"maxMs,omitempty"`
}

// Snapshot copies the current state.
func (s *MemorySink) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snap := Snapshot{
		Timestamp:     now.UTC(),
		UptimeSeconds: now.Sub(s.startedAt).Seconds(),
		HTTP: HTTPSnapshot{
			Total:        s.requests,
			ByMethod:     maps.Clone(s.byMethod),
			ByRoute:      maps.Clone(s.byRoute),
			ByStatus:     maps.Clone(s.byStatus),
			ClientErrors: s.clientErrors,
			ServerErrors: s.serverErrors,
		},
		Store: make(map[string]StoreOpSnapshot, len(s.storeOps)),
		StoreTotals: StoreOpSnapshot{
			Count:  s.storeOpsTotal,
			Errors: s.storeOpsFailed,
		},
	}

	if s.latency.count > 0 {
		snap.Latency = LatencySnapshot{
			Count: s.latency.count,
			MinMs: s.latency.minMs,
			MaxMs: s.latency.maxMs,
			AvgMs: s.latency.sumMs / float64(s.latency.count),
			P95Ms: percentile(s.recent, 0.95),
		}
	}

	for op, stats := range s.storeOps {
		snap.Store[op] = StoreOpSnapshot{
			Count:  stats.count,
			Errors: stats.errors,
			AvgMs:  stats.sumMs / float64(stats.count),
			MaxMs:  stats.maxMs,
		}
	}

	return snap
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	return sorted[max(idx, 0)]
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
