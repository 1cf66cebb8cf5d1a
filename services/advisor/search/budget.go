// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// BudgetConfig bounds a single search invocation.
type BudgetConfig struct {
	// MaxNodes is the maximum number of states expanded.
	MaxNodes int

	// TimeLimit is the wall-clock limit.
	TimeLimit time.Duration
}

// Budget tracks resource consumption during a search and reports when a
// limit is hit. Exhaustion is a degradation signal, not an error: the
// search returns its best ranking so far and the caller reads the
// exhausted flag from Metrics.
//
// Thread Safety: All methods are safe for concurrent use.
type Budget struct {
	config BudgetConfig

	nodesExplored atomic.Int64
	cacheHits     atomic.Int64
	pruned        atomic.Int64
	startTime     time.Time

	mu          sync.RWMutex
	exhausted   bool
	exhaustedBy string // "time" or "nodes"
}

// NewBudget creates a budget tracker and starts its clock.
func NewBudget(config BudgetConfig) *Budget {
	return &Budget{
		config:    config,
		startTime: time.Now(),
	}
}

// RecordNode increments the node counter and returns the new total.
func (b *Budget) RecordNode() int64 {
	return b.nodesExplored.Add(1)
}

// RecordCacheHit increments the memo-hit counter.
func (b *Budget) RecordCacheHit() {
	b.cacheHits.Add(1)
}

// RecordPruned increments the pruned-subtree counter.
func (b *Budget) RecordPruned() {
	b.pruned.Add(1)
}

// NodesExplored returns the current node count.
func (b *Budget) NodesExplored() int64 {
	return b.nodesExplored.Load()
}

// CacheHits returns the current memo-hit count.
func (b *Budget) CacheHits() int64 {
	return b.cacheHits.Load()
}

// Pruned returns the current pruned-subtree count.
func (b *Budget) Pruned() int64 {
	return b.pruned.Load()
}

// Elapsed returns the wall-clock time since the budget started.
func (b *Budget) Elapsed() time.Duration {
	return time.Since(b.startTime)
}

// Exhausted reports whether any limit has been hit. The first check that
// trips a limit latches it; later checks return true without re-testing.
func (b *Budget) Exhausted() bool {
	b.mu.RLock()
	if b.exhausted {
		b.mu.RUnlock()
		return true
	}
	b.mu.RUnlock()

	if err := b.checkLimits(); err != nil {
		return true
	}
	return false
}

// ExhaustedBy returns which limit tripped ("time" or "nodes"), or the
// empty string while the budget still has headroom.
func (b *Budget) ExhaustedBy() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exhaustedBy
}

// checkLimits tests each limit and latches the first one hit.
func (b *Budget) checkLimits() error {
	if b.config.TimeLimit > 0 && time.Since(b.startTime) >= b.config.TimeLimit {
		b.markExhausted("time")
		return ErrTimeLimitExceeded
	}
	if b.config.MaxNodes > 0 && b.nodesExplored.Load() >= int64(b.config.MaxNodes) {
		b.markExhausted("nodes")
		return ErrNodeLimitExceeded
	}
	return nil
}

func (b *Budget) markExhausted(by string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.exhausted {
		b.exhausted = true
		b.exhaustedBy = by
	}
}

// Reset clears all counters and restarts the clock so the budget can be
// reused for another invocation.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodesExplored.Store(0)
	b.cacheHits.Store(0)
	b.pruned.Store(0)
	b.startTime = time.Now()
	b.exhausted = false
	b.exhaustedBy = ""
}

// String returns a one-line summary for logs.
func (b *Budget) String() string {
	b.mu.RLock()
	exhausted := b.exhausted
	by := b.exhaustedBy
	b.mu.RUnlock()
	return fmt.Sprintf("nodes=%d cache_hits=%d pruned=%d elapsed=%s exhausted=%t by=%q",
		b.nodesExplored.Load(), b.cacheHits.Load(), b.pruned.Load(),
		b.Elapsed().Round(time.Millisecond), exhausted, by)
}
