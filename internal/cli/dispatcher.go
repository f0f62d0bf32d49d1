// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jontk/distsched/internal/dispatch"
	"github.com/jontk/distsched/internal/task"
	"github.com/jontk/distsched/pkg/config"
	"github.com/jontk/distsched/pkg/logging"
)

// NewDispatcherCommand builds the dispatcher's cobra command: it submits a
// batch of jobs under one of the assignment policies named in the external
// interface, either directly onto node queues or into the shared pending
// queue for the scheduler to place.
func NewDispatcherCommand() *cobra.Command {
	var (
		brokerAddr     string
		inputs         string
		outputs        string
		policy         string
		nodes          string
		mix            string
		profileCatalog string
		total          int
		seed           int64
		cpuUnits       int
		pendingKey     string
		pendingMode    string
		pulseSize      int
		pulseInterval  string
		batchSize      int
		backlogLimit   int64
		dribbleEvery   string
		debug          bool
	)

	cmd := &cobra.Command{
		Use:   "dispatcher",
		Short: "Submit a batch of jobs to distsched",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewDefaultDispatcherConfig()
			cfg.Load()

			if brokerAddr != "" {
				cfg.BrokerAddr = brokerAddr
			}
			if policy != "" {
				cfg.Mode = policy
			}
			if seed != 0 {
				cfg.Seed = seed
			}
			if nodes != "" {
				cfg.NodeList = strings.Split(nodes, ",")
			}
			if profileCatalog != "" {
				cfg.ProfileCatalogPath = profileCatalog
			}
			if debug {
				cfg.Debug = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Debug {
				level = slog.LevelDebug
			}
			log := logging.NewLogger(&logging.Config{Level: level, Format: logging.FormatJSON, Component: "dispatcher"})

			jobs, err := buildJobs(cfg, inputs, outputs, total, cpuUnits, mix, cfg.Seed)
			if err != nil {
				return err
			}
			log.Info("dispatching jobs", "count", len(jobs), "policy", cfg.Mode)

			b, closeBroker, err := openBroker(cfg.BrokerAddr, log)
			if err != nil {
				return err
			}
			defer closeBroker()

			submitter := dispatch.New(b, log).WithPendingKey(pendingKey)

			ctx := context.Background()
			switch cfg.Mode {
			case "rr3":
				return submitter.RoundRobin(ctx, jobs, cfg.NodeList)
			case "duration-greedy":
				return submitter.DurationGreedy(ctx, jobs, cfg.NodeList)
			case "central-pulse":
				interval, err := time.ParseDuration(pulseInterval)
				if err != nil {
					return fmt.Errorf("--pulse-interval: %w", err)
				}
				return submitter.CentralPending(ctx, jobs, dispatch.PendingOptions{
					Mode:          dispatch.PendingPulse,
					PulseSize:     pulseSize,
					PulseInterval: interval,
				})
			default:
				mode := dispatch.PendingFIFO
				if pendingMode == string(dispatch.PendingPulse) {
					mode = dispatch.PendingPulse
				}
				dribble, err := time.ParseDuration(dribbleEvery)
				if err != nil {
					return fmt.Errorf("--dribble-interval: %w", err)
				}
				return submitter.CentralPending(ctx, jobs, dispatch.PendingOptions{
					Mode:            mode,
					BatchSize:       batchSize,
					PendingMax:      backlogLimit,
					DribbleInterval: dribble,
				})
			}
		},
	}

	cmd.Flags().StringVar(&brokerAddr, "broker-addr", "", "broker connection string (env: DISTSCHED_BROKER_ADDR)")
	cmd.Flags().StringVar(&inputs, "inputs", "", "comma-separated input locators; takes priority over --total")
	cmd.Flags().StringVar(&outputs, "outputs", "", "comma-separated output locators, paired positionally with --inputs")
	cmd.Flags().StringVar(&policy, "policy", "", `assignment policy: rr3, duration-greedy, central-fifo, central-pulse (env: DISTSCHED_DISPATCHER_MODE)`)
	cmd.Flags().StringVar(&nodes, "nodes", "", "comma-separated node names, required by rr3 and duration-greedy")
	cmd.Flags().StringVar(&mix, "mix", "", `profile weight spec, e.g. "720p:3,1080p:1"`)
	cmd.Flags().StringVar(&profileCatalog, "profile-catalog", "", "optional YAML catalog resolving --mix names to full encode profiles (env: DISTSCHED_DISPATCHER_PROFILE_CATALOG)")
	cmd.Flags().IntVar(&total, "total", 0, "synthetic job count generated when --inputs is empty")
	cmd.Flags().Int64Var(&seed, "seed", 0, "profile-mix generator seed (env: DISTSCHED_DISPATCHER_SEED)")
	cmd.Flags().IntVar(&cpuUnits, "cpu-units", 1, "vCPU demand stamped on every generated job")
	cmd.Flags().StringVar(&pendingKey, "pending", "", "override the broker's central-pending key (central-fifo/central-pulse only)")
	cmd.Flags().StringVar(&pendingMode, "pending-mode", "fifo", "pulse or fifo sub-mode for --policy central-pulse/central-fifo")
	cmd.Flags().IntVar(&pulseSize, "pulse-size", 1, "jobs enqueued per pulse burst")
	cmd.Flags().StringVar(&pulseInterval, "pulse-interval", "0s", "sleep between pulse bursts, e.g. 500ms")
	cmd.Flags().IntVar(&batchSize, "batch-size", 1, "jobs enqueued per fifo batch")
	cmd.Flags().Int64Var(&backlogLimit, "backlog-limit", 0, "central-fifo only: hold back further batches while the pending queue holds at least this many jobs; 0 disables")
	cmd.Flags().StringVar(&dribbleEvery, "dribble-interval", "0s", "sleep applied between fifo batches and backlog retries")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

// buildJobs resolves --inputs/--outputs/--total/--mix into a []dispatch.Job.
func buildJobs(cfg *config.DispatcherConfig, inputs, outputs string, total, cpuUnits int, mix string, seed int64) ([]dispatch.Job, error) {
	profiles, err := resolveMix(cfg, inputs, total, mix, seed)
	if err != nil {
		return nil, err
	}

	var ins, outs []string
	if inputs != "" {
		ins = strings.Split(inputs, ",")
	}
	if outputs != "" {
		outs = strings.Split(outputs, ",")
	}

	n := len(ins)
	if n == 0 {
		n = total
	}
	if n == 0 {
		return nil, fmt.Errorf("one of --inputs or --total is required")
	}

	jobs := make([]dispatch.Job, n)
	for i := 0; i < n; i++ {
		in := ""
		if i < len(ins) {
			in = ins[i]
		} else {
			in = fmt.Sprintf("job-%04d.input", i)
		}
		out := ""
		if i < len(outs) {
			out = outs[i]
		} else {
			out = deriveOutput(in)
		}
		jobs[i] = dispatch.Job{
			Input:    in,
			Output:   out,
			Profile:  profiles[i%len(profiles)],
			CPUUnits: cpuUnits,
		}
	}
	return jobs, nil
}

func deriveOutput(in string) string {
	ext := filepath.Ext(in)
	base := strings.TrimSuffix(in, ext)
	return base + ".out" + ext
}

// resolveMix parses --mix into a weighted profile set and, when --total or
// more jobs than --inputs are requested, expands it into a deterministic
// per-job sequence via dispatch.GenerateProfileMix. Inputs submitted
// without --mix get one anonymous default profile each.
func resolveMix(cfg *config.DispatcherConfig, inputs string, total int, mix string, seed int64) ([]task.Profile, error) {
	if mix == "" {
		return []task.Profile{{Name: "default"}}, nil
	}

	catalog := map[string]task.Profile{}
	if cfg.ProfileCatalogPath != "" {
		c, err := dispatch.LoadCatalog(cfg.ProfileCatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	var weights []dispatch.ProfileWeight
	for _, pair := range strings.Split(mix, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		name := parts[0]
		weight := 1.0
		if len(parts) == 2 {
			w, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("--mix: invalid weight in %q: %w", pair, err)
			}
			weight = w
		}
		p, ok := catalog[name]
		if !ok {
			p = task.Profile{Name: name}
		}
		weights = append(weights, dispatch.ProfileWeight{Profile: p, Weight: weight})
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("--mix: no profiles parsed from %q", mix)
	}

	n := total
	if inputs != "" {
		n = len(strings.Split(inputs, ","))
	}
	if n <= 0 {
		n = len(weights)
	}
	return dispatch.GenerateProfileMix(weights, n, uint64(seed)), nil
}
