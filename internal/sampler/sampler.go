// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/jontk/distsched/pkg/logging"
	"github.com/jontk/distsched/pkg/metrics"
	"github.com/jontk/distsched/pkg/watch"
)

// DefaultInterval is the sampler's fixed tick cadence absent configuration.
const DefaultInterval = 200 * time.Millisecond

// Sampler ticks at a fixed cadence (with sleep compensation), recording one
// raw sample per tracked PID per tick.
type Sampler struct {
	tracker  Tracker
	interval time.Duration
	w        io.Writer
	log      logging.Logger
	metrics  metrics.Collector

	lastTick map[int]int64 // pid -> last tick ts_ms seen, for gap detection
}

// New constructs a Sampler writing newline-delimited JSON samples to w.
func New(tracker Tracker, interval time.Duration, w io.Writer, log logging.Logger, collector metrics.Collector) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if collector == nil {
		collector = metrics.GetDefaultCollector()
	}
	return &Sampler{tracker: tracker, interval: interval, w: w, log: log, metrics: collector, lastTick: make(map[int]int64)}
}

// Run drives the sampling loop until ctx is canceled.
func (s *Sampler) Run(ctx context.Context) error {
	return watch.CompensatedLoop(ctx, s.interval, s.tick)
}

func (s *Sampler) tick(ctx context.Context) error {
	pids, err := s.tracker.TrackedPIDs()
	if err != nil {
		if s.log != nil {
			s.log.Warn("tracker error", "error", err)
		}
		return nil
	}

	now := time.Now().UnixMilli()
	enc := json.NewEncoder(s.w)
	for _, pid := range pids {
		utime, stime, rssKB, err := ReadStat(pid)
		if err != nil {
			// Process exited between tracking and sampling; not a
			// sampling gap by itself, just drop this pid this tick.
			continue
		}
		if last, ok := s.lastTick[pid]; ok {
			gap := now - last - s.interval.Milliseconds()
			if gap > s.interval.Milliseconds() {
				s.metrics.RecordSamplingGap(pid, gap)
			}
		}
		s.lastTick[pid] = now

		sample := RawSample{TsMs: now, Pid: pid, Utime: utime, Stime: stime, RSSKB: rssKB}
		if err := enc.Encode(sample); err != nil {
			return err
		}
	}
	return nil
}
