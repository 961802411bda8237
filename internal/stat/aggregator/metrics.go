package aggregator

import (
	"sync/atomic"
	"time"
)

// Metrics is a point-in-time copy of the aggregator's counters.
type Metrics struct {
	TotalResolutions   int64
	CacheHits          int64
	CacheMisses        int64
	SubsystemFailures  int64
	AverageResolveTime time.Duration
	MaxResolveTime     time.Duration
}

type counters struct {
	totalResolutions  atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	subsystemFailures atomic.Int64
	totalDurationNS   atomic.Int64
	maxDurationNS     atomic.Int64
}

func (c *counters) observe(d time.Duration) {
	ns := d.Nanoseconds()
	c.totalDurationNS.Add(ns)
	for {
		current := c.maxDurationNS.Load()
		if ns <= current || c.maxDurationNS.CompareAndSwap(current, ns) {
			return
		}
	}
}

func (c *counters) snapshot() Metrics {
	m := Metrics{
		TotalResolutions:  c.totalResolutions.Load(),
		CacheHits:         c.cacheHits.Load(),
		CacheMisses:       c.cacheMisses.Load(),
		SubsystemFailures: c.subsystemFailures.Load(),
		MaxResolveTime:    time.Duration(c.maxDurationNS.Load()),
	}
	if m.TotalResolutions > 0 {
		m.AverageResolveTime = time.Duration(c.totalDurationNS.Load() / m.TotalResolutions)
	}
	return m
}
