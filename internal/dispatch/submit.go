// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"sort"
	"time"

	"github.com/jontk/distsched/internal/broker"
	"github.com/jontk/distsched/internal/schedule"
	"github.com/jontk/distsched/internal/task"
	distschederrors "github.com/jontk/distsched/pkg/errors"
	"github.com/jontk/distsched/pkg/logging"
)

// Job is one unit of submission input: a locator plus an estimated duration
// used by the offline duration-greedy policy (zero if unknown).
type Job struct {
	Input            string
	Output           string
	Profile          task.Profile
	CPUUnits         int
	EstimatedSeconds float64
}

// Submitter pushes a batch of jobs into the broker under one of the
// policies named in the external interface.
type Submitter struct {
	b          broker.Broker
	log        logging.Logger
	pendingKey string
}

// New constructs a Submitter over the given broker.
func New(b broker.Broker, log logging.Logger) *Submitter {
	return &Submitter{b: b, log: log, pendingKey: schedule.PendingKey}
}

// WithPendingKey overrides the broker key central-pending submission writes
// to, so a dispatcher can target a non-default scheduling domain (the
// CLI's --pending flag, paired with the scheduler's own --pending).
func (s *Submitter) WithPendingKey(key string) *Submitter {
	if key != "" {
		s.pendingKey = key
	}
	return s
}

func (s *Submitter) encode(j Job, seq int64) ([]byte, error) {
	tk, err := task.NewBuilder(j.Input, j.Output).
		WithProfile(j.Profile).
		WithCPUUnits(j.CPUUnits).
		WithSeq(seq).
		WithTsEnqueue(time.Now().UnixMilli()).
		Build()
	if err != nil {
		return nil, distschederrors.NewValidationError("job", j.Input, "invalid job: %v", err)
	}
	return tk.Encode()
}

// RoundRobin assigns the i-th job to nodes[i mod len(nodes)], pushing
// directly onto each node's dispatch queue.
func (s *Submitter) RoundRobin(ctx context.Context, jobs []Job, nodes []string) error {
	if len(nodes) == 0 {
		return distschederrors.NewValidationError("nodes", nodes, "round-robin requires at least one node")
	}
	for i, j := range jobs {
		node := nodes[i%len(nodes)]
		data, err := s.encode(j, int64(i))
		if err != nil {
			return err
		}
		if err := s.b.AppendTail(ctx, schedule.NodeQueueKey(node), data); err != nil {
			return distschederrors.NewBrokerError("append_tail", err)
		}
	}
	return nil
}

// DurationGreedy implements offline LPT: jobs are sorted by descending
// estimated duration, and each is assigned to whichever node currently
// carries the smallest accumulated estimated duration.
func (s *Submitter) DurationGreedy(ctx context.Context, jobs []Job, nodes []string) error {
	if len(nodes) == 0 {
		return distschederrors.NewValidationError("nodes", nodes, "duration-greedy requires at least one node")
	}

	sorted := make([]Job, len(jobs))
	copy(sorted, jobs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EstimatedSeconds > sorted[j].EstimatedSeconds })

	load := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		load[n] = 0
	}

	for i, j := range sorted {
		node := nodes[0]
		for _, n := range nodes[1:] {
			if load[n] < load[node] {
				node = n
			}
		}
		data, err := s.encode(j, int64(i))
		if err != nil {
			return err
		}
		if err := s.b.AppendTail(ctx, schedule.NodeQueueKey(node), data); err != nil {
			return distschederrors.NewBrokerError("append_tail", err)
		}
		load[node] += j.EstimatedSeconds
	}
	return nil
}

// DribbleOptions configures the online duration/FIFO dribble policy.
type DribbleOptions struct {
	BatchSize     int
	BacklogLimit  int64
	BatchInterval time.Duration
}

// Dribble iterates jobs in small batches; within a batch, each job goes to
// whichever node's per-node queue is below BacklogLimit and carries the
// smallest estimated load, sleeping BatchInterval between batches.
func (s *Submitter) Dribble(ctx context.Context, jobs []Job, nodes []string, opts DribbleOptions) error {
	if len(nodes) == 0 {
		return distschederrors.NewValidationError("nodes", nodes, "dribble requires at least one node")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}

	load := make(map[string]float64, len(nodes))
	seq := int64(0)
	for start := 0; start < len(jobs); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		for _, j := range jobs[start:end] {
			node, err := s.pickDribbleNode(ctx, nodes, load, opts.BacklogLimit)
			if err != nil {
				return err
			}
			data, encErr := s.encode(j, seq)
			if encErr != nil {
				return encErr
			}
			if err := s.b.AppendTail(ctx, schedule.NodeQueueKey(node), data); err != nil {
				return distschederrors.NewBrokerError("append_tail", err)
			}
			load[node] += j.EstimatedSeconds
			seq++
		}
		if end < len(jobs) && opts.BatchInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.BatchInterval):
			}
		}
	}
	return nil
}

func (s *Submitter) pickDribbleNode(ctx context.Context, nodes []string, load map[string]float64, backlogLimit int64) (string, error) {
	var best string
	bestLoad := -1.0
	for _, n := range nodes {
		if backlogLimit > 0 {
			length, err := s.b.Length(ctx, schedule.NodeQueueKey(n))
			if err != nil {
				return "", distschederrors.NewBrokerError("length", err)
			}
			if length >= backlogLimit {
				continue
			}
		}
		if bestLoad < 0 || load[n] < bestLoad {
			best = n
			bestLoad = load[n]
		}
	}
	if best == "" {
		// Every node is at its backlog limit; fall back to the globally
		// least-loaded node rather than blocking the submitter.
		best = nodes[0]
		for _, n := range nodes[1:] {
			if load[n] < load[best] {
				best = n
			}
		}
	}
	return best, nil
}

// PendingMode selects the central-pending sub-mode.
type PendingMode string

const (
	PendingPulse PendingMode = "pulse"
	PendingFIFO  PendingMode = "fifo"
)

// PendingOptions configures central-pending submission.
type PendingOptions struct {
	Mode            PendingMode
	PulseSize       int
	PulseInterval   time.Duration
	BatchSize       int
	PendingMax      int64
	DribbleInterval time.Duration
}

// CentralPending flattens jobs into the shared pending queue for the
// central scheduler to dispatch, in pulse or fifo sub-mode. ts_enqueue is
// stamped here, strictly increasing within a pulse.
func (s *Submitter) CentralPending(ctx context.Context, jobs []Job, opts PendingOptions) error {
	switch opts.Mode {
	case PendingPulse:
		return s.centralPendingPulse(ctx, jobs, opts)
	default:
		return s.centralPendingFIFO(ctx, jobs, opts)
	}
}

func (s *Submitter) centralPendingPulse(ctx context.Context, jobs []Job, opts PendingOptions) error {
	pulseSize := opts.PulseSize
	if pulseSize <= 0 {
		pulseSize = 1
	}

	var lastTs int64
	var skew int64
	seq := int64(0)
	for start := 0; start < len(jobs); start += pulseSize {
		end := start + pulseSize
		if end > len(jobs) {
			end = len(jobs)
		}
		now := time.Now().UnixMilli()
		for _, j := range jobs[start:end] {
			ts := now
			if ts <= lastTs {
				ts = lastTs + 1
				skew += ts - now
			}
			lastTs = ts

			tk, err := task.NewBuilder(j.Input, j.Output).
				WithProfile(j.Profile).
				WithCPUUnits(j.CPUUnits).
				WithSeq(seq).
				WithTsEnqueue(ts).
				Build()
			if err != nil {
				return distschederrors.NewValidationError("job", j.Input, "invalid job: %v", err)
			}
			data, err := tk.Encode()
			if err != nil {
				return err
			}
			if err := s.b.AppendTail(ctx, s.pendingKey, data); err != nil {
				return distschederrors.NewBrokerError("append_tail", err)
			}
			seq++
		}
		if end < len(jobs) && opts.PulseInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.PulseInterval):
			}
		}
	}
	if s.log != nil && skew > 0 {
		s.log.Info("pulse enqueue skew", "skew_ms", skew)
	}
	return nil
}

func (s *Submitter) centralPendingFIFO(ctx context.Context, jobs []Job, opts PendingOptions) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	seq := int64(0)
	i := 0
	for i < len(jobs) {
		if opts.PendingMax > 0 {
			length, err := s.b.Length(ctx, s.pendingKey)
			if err != nil {
				return distschederrors.NewBrokerError("length", err)
			}
			if length >= opts.PendingMax {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(opts.DribbleInterval):
				}
				continue
			}
		}

		end := i + batchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		for _, j := range jobs[i:end] {
			data, err := s.encode(j, seq)
			if err != nil {
				return err
			}
			if err := s.b.AppendTail(ctx, s.pendingKey, data); err != nil {
				return distschederrors.NewBrokerError("append_tail", err)
			}
			seq++
		}
		i = end
		if i < len(jobs) && opts.DribbleInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.DribbleInterval):
			}
		}
	}
	return nil
}
