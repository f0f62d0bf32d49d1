// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jontk/distsched/internal/schedule"
	"github.com/jontk/distsched/pkg/config"
	"github.com/jontk/distsched/pkg/logging"
	"github.com/jontk/distsched/pkg/metrics"
)

// NewSchedulerCommand builds the scheduler daemon's cobra command: it ticks
// the pending queue against per-node capacity and slot tokens, dispatching
// the head task to one feasible node per iteration.
func NewSchedulerCommand() *cobra.Command {
	var (
		brokerAddr    string
		pollInterval  string
		scanSlots     int
		pendingKey    string
		slotsKey      string
		weigher       string
		weigherOrder  string
		debug         bool
		dumpStatePath string
	)

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the distsched central scheduler",
		Long:  `scheduler ticks the pending queue against per-node capacity and slot tokens, dispatching the head task to one feasible node per iteration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewDefaultSchedulerConfig()
			cfg.Load()

			if brokerAddr != "" {
				cfg.BrokerAddr = brokerAddr
			}
			if pollInterval != "" {
				d, err := time.ParseDuration(pollInterval)
				if err != nil {
					return fmt.Errorf("--poll-interval: %w", err)
				}
				cfg.PollInterval = d
			}
			if scanSlots > 0 {
				cfg.ScanSlots = scanSlots
			}
			if weigher != "" {
				cfg.Weigher = weigher
			}
			if weigherOrder != "" {
				cfg.WeigherOrder = weigherOrder
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
			log := logging.NewLogger(&logging.Config{Level: level, Format: logging.FormatJSON, Component: "scheduler"})

			b, closeBroker, err := openBroker(cfg.BrokerAddr, log)
			if err != nil {
				return err
			}
			defer closeBroker()

			if exit, err := dumpState(b, dumpStatePath, cfg.BrokerAddr, log); exit {
				return err
			}

			sched := schedule.New(b, schedule.Config{
				PollInterval:     cfg.PollInterval,
				ScanSlots:        cfg.ScanSlots,
				Weigher:          schedule.WeigherKind(cfg.Weigher),
				WeigherOrder:     schedule.Order(cfg.WeigherOrder),
				PendingKey:       pendingKey,
				SlotsKeyOverride: slotsKey,
			}, log, metrics.GetDefaultCollector())

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.Info("scheduler starting", "broker_addr", redactAddr(cfg.BrokerAddr), "weigher", cfg.Weigher)
			err = sched.Run(ctx)
			if err != nil && ctx.Err() != nil {
				log.Info("scheduler stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&brokerAddr, "broker-addr", "", "broker connection string (env: DISTSCHED_BROKER_ADDR)")
	cmd.Flags().StringVar(&pollInterval, "poll-interval", "", "idle poll interval, e.g. 200ms (env: DISTSCHED_SCHEDULER_POLL_INTERVAL)")
	cmd.Flags().IntVar(&scanSlots, "scan-slots", 0, "rightmost slot tokens scanned per tick (env: DISTSCHED_SCHEDULER_SCAN_SLOTS)")
	cmd.Flags().StringVar(&pendingKey, "pending", "", "override the broker's central-pending key; default q:pending")
	cmd.Flags().StringVar(&slotsKey, "slots", "", "override the broker's slot-pool key; default slots:available")
	cmd.Flags().StringVar(&weigher, "weigher", "", `node-scoring strategy: "", instances, vcpu`)
	cmd.Flags().StringVar(&weigherOrder, "weigher-order", "", "min or max")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&dumpStatePath, "dump-state", "", "write a point-in-time broker snapshot to this buntdb path and exit (in-memory broker only)")

	return cmd
}
