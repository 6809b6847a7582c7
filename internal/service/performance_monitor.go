package service

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	defaultMaxSamples = 1000
	// cached responses should come back well under this
	cachedLatencyTarget = 100 * time.Millisecond
	// upstream calls slower than this are counted as slow
	defaultSlowUpstream  = 2 * time.Second
	minFetchesForHitRate = 100
	hitRateTarget        = 70.0
)

// PerformanceMonitor tracks read-through fetch latency split by cache hits
// and upstream calls
type PerformanceMonitor struct {
	mu            sync.RWMutex
	cachedTimes   []time.Duration
	upstreamTimes []time.Duration
	cacheHits     int64
	cacheMisses   int64
	failures      int64
	slowFetches   int64
	totalFetches  int64
	maxSamples    int
	slowUpstream  time.Duration
}

// NewPerformanceMonitor creates a new performance monitor
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		cachedTimes:   make([]time.Duration, 0, defaultMaxSamples),
		upstreamTimes: make([]time.Duration, 0, defaultMaxSamples),
		maxSamples:    defaultMaxSamples,
		slowUpstream:  defaultSlowUpstream,
	}
}

var defaultMonitor = NewPerformanceMonitor()

// DefaultMonitor returns the monitor every service reports its fetches to
func DefaultMonitor() *PerformanceMonitor {
	return defaultMonitor
}

// RecordFetch records one read-through fetch. Failed fetches only count
// towards the failure total.
func (pm *PerformanceMonitor) RecordFetch(duration time.Duration, cached bool, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.totalFetches++
	if err != nil {
		pm.failures++
		return
	}

	if cached {
		pm.cacheHits++
		pm.cachedTimes = appendSample(pm.cachedTimes, duration, pm.maxSamples)
		if duration > cachedLatencyTarget {
			pm.slowFetches++
		}
		return
	}

	pm.cacheMisses++
	pm.upstreamTimes = appendSample(pm.upstreamTimes, duration, pm.maxSamples)
	if duration > pm.slowUpstream {
		pm.slowFetches++
	}
}

// appendSample keeps only the last max samples
func appendSample(samples []time.Duration, d time.Duration, max int) []time.Duration {
	samples = append(samples, d)
	if len(samples) > max {
		samples = samples[len(samples)-max:]
	}
	return samples
}

// PerformanceStats contains read-through fetch statistics
type PerformanceStats struct {
	TotalFetches  int64   `json:"totalFetches"`
	CacheHits     int64   `json:"cacheHits"`
	CacheMisses   int64   `json:"cacheMisses"`
	Failures      int64   `json:"failures"`
	SlowFetches   int64   `json:"slowFetches"`
	CacheHitRate  float64 `json:"cacheHitRate"` // percentage of successful fetches
	AvgCachedMs   float64 `json:"avgCachedMs"`
	AvgUpstreamMs float64 `json:"avgUpstreamMs"`
	P95CachedMs   float64 `json:"p95CachedMs"`
	P99CachedMs   float64 `json:"p99CachedMs"`
	P95UpstreamMs float64 `json:"p95UpstreamMs"`
}

// PerformanceCheck contains performance check results
type PerformanceCheck struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues"`
}

// PerformanceReport is served by the stats endpoint
type PerformanceReport struct {
	Stats *PerformanceStats `json:"stats"`
	Check *PerformanceCheck `json:"check"`
}

// GetStats returns current performance statistics
func (pm *PerformanceMonitor) GetStats() *PerformanceStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	stats := &PerformanceStats{
		TotalFetches: pm.totalFetches,
		CacheHits:    pm.cacheHits,
		CacheMisses:  pm.cacheMisses,
		Failures:     pm.failures,
		SlowFetches:  pm.slowFetches,
	}

	if served := pm.cacheHits + pm.cacheMisses; served > 0 {
		stats.CacheHitRate = float64(pm.cacheHits) / float64(served) * 100
	}

	stats.AvgCachedMs = averageMs(pm.cachedTimes)
	stats.AvgUpstreamMs = averageMs(pm.upstreamTimes)

	cached := sortedCopy(pm.cachedTimes)
	stats.P95CachedMs = percentileMs(cached, 0.95)
	stats.P99CachedMs = percentileMs(cached, 0.99)
	stats.P95UpstreamMs = percentileMs(sortedCopy(pm.upstreamTimes), 0.95)

	return stats
}

// Reset resets all performance metrics
func (pm *PerformanceMonitor) Reset() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.cachedTimes = make([]time.Duration, 0, pm.maxSamples)
	pm.upstreamTimes = make([]time.Duration, 0, pm.maxSamples)
	pm.cacheHits = 0
	pm.cacheMisses = 0
	pm.failures = 0
	pm.slowFetches = 0
	pm.totalFetches = 0
}

// CheckPerformance checks cached latency and the hit rate against their targets
func (pm *PerformanceMonitor) CheckPerformance() *PerformanceCheck {
	stats := pm.GetStats()

	check := &PerformanceCheck{
		Passed: true,
		Issues: make([]string, 0),
	}

	targetMs := float64(cachedLatencyTarget.Milliseconds())
	if stats.AvgCachedMs > targetMs {
		check.Passed = false
		check.Issues = append(check.Issues,
			fmt.Sprintf("Average cached fetch time (%.2fms) exceeds %.0fms threshold", stats.AvgCachedMs, targetMs))
	}
	if stats.P95CachedMs > targetMs {
		check.Passed = false
		check.Issues = append(check.Issues,
			fmt.Sprintf("P95 cached fetch time (%.2fms) exceeds %.0fms threshold", stats.P95CachedMs, targetMs))
	}

	// advisory only
	if stats.CacheHits+stats.CacheMisses > minFetchesForHitRate && stats.CacheHitRate < hitRateTarget {
		check.Issues = append(check.Issues,
			fmt.Sprintf("Cache hit rate (%.2f%%) is below %.0f%% - consider a longer CACHE_TTL", stats.CacheHitRate, hitRateTarget))
	}

	return check
}

// Report bundles the current stats with the performance check
func (pm *PerformanceMonitor) Report() *PerformanceReport {
	return &PerformanceReport{
		Stats: pm.GetStats(),
		Check: pm.CheckPerformance(),
	}
}

func averageMs(samples []time.Duration) float64 {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range samples {
		total += d
	}
	return float64(total.Milliseconds()) / float64(len(samples))
}

func sortedCopy(samples []time.Duration) []time.Duration {
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

// percentileMs expects sorted input
func percentileMs(sorted []time.Duration, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return float64(sorted[idx].Milliseconds())
}
