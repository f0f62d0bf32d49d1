// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jontk/distsched/internal/adapter"
	"github.com/jontk/distsched/internal/spanstream"
	"github.com/jontk/distsched/internal/worker"
	"github.com/jontk/distsched/pkg/config"
	"github.com/jontk/distsched/pkg/logging"
)

// NewWorkerCommand builds the worker daemon's cobra command: it registers
// the node's capacity, then launches one instrumented child invocation per
// dispatched task under exclusive cpuset pinning or shared cgroup quotas.
func NewWorkerCommand() *cobra.Command {
	var (
		brokerAddr       string
		node             string
		capacityUnits    int
		allocationRatio  float64
		parallel         int
		cpuBinding       string
		cpuWeightPerVCPU int
		fetchTimeout     string
		resetCapacity    bool
		clearQueue       bool
		debug            bool
		dumpStatePath    string

		executable  string
		spanPath    string
		sentinelDir string
		spanListen  string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a distsched worker node",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewDefaultWorkerConfig()
			cfg.Load()

			if brokerAddr != "" {
				cfg.BrokerAddr = brokerAddr
			}
			if node != "" {
				cfg.NodeName = node
			}
			if capacityUnits > 0 {
				cfg.CapacityUnits = capacityUnits
			}
			cfg.PhysicalCores = runtime.NumCPU()
			if allocationRatio > 0 {
				cfg.AllocationRatio = allocationRatio
			}
			if parallel > 0 {
				cfg.Parallel = parallel
			}
			if cpuBinding == string(worker.BindingShared) {
				cfg.Shared = true
			}
			if fetchTimeout != "" {
				d, err := time.ParseDuration(fetchTimeout)
				if err != nil {
					return fmt.Errorf("--fetch-timeout: %w", err)
				}
				cfg.FetchTimeout = d
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
			log := logging.NewLogger(&logging.Config{Level: level, Format: logging.FormatJSON, Component: "worker"}).With("node", cfg.NodeName)

			b, closeBroker, err := openBroker(cfg.BrokerAddr, log)
			if err != nil {
				return err
			}
			defer closeBroker()

			if exit, err := dumpState(b, dumpStatePath, cfg.BrokerAddr, log); exit {
				return err
			}

			binding := worker.BindingExclusive
			if cfg.Shared {
				binding = worker.BindingShared
			}

			if err := worker.Register(context.Background(), b, worker.RegistrationOptions{
				Node:             cfg.NodeName,
				LogicalCores:     cfg.PhysicalCores,
				AllocationRatio:  cfg.AllocationRatio,
				CapacityOverride: cfg.CapacityUnits,
				Parallel:         cfg.Parallel,
				ResetCapacity:    resetCapacity,
				ClearQueue:       clearQueue,
			}); err != nil {
				return fmt.Errorf("registering node: %w", err)
			}

			ad := adapter.New(adapter.Config{
				Executable:  executable,
				SpanPath:    spanPath,
				SentinelDir: sentinelDir,
			}, log)

			if spanListen != "" {
				hub := spanstream.NewHub()
				ad = ad.WithHub(hub)
				mux := http.NewServeMux()
				mux.HandleFunc("/spans", hub.HandleWebSocket)
				srv := &http.Server{Addr: spanListen, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Warn("span-tail listener exited", "error", err)
					}
				}()
				defer srv.Close()
				log.Info("span-tail websocket listening", "addr", spanListen)
			}

			w := worker.New(b, worker.Config{
				Node:             cfg.NodeName,
				Parallel:         cfg.Parallel,
				CapTotal:         cfg.CapacityUnits,
				Binding:          binding,
				FetchTimeout:     cfg.FetchTimeout,
				CPUWeightPerVCPU: cpuWeightPerVCPU,
			}, ad, log, cfg.PhysicalCores)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.Info("worker starting", "binding", binding, "parallel", cfg.Parallel, "capacity_units", cfg.CapacityUnits)
			err = w.Run(ctx)
			if err != nil && ctx.Err() != nil {
				log.Info("worker stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&brokerAddr, "broker-addr", "", "broker connection string (env: DISTSCHED_BROKER_ADDR)")
	cmd.Flags().StringVar(&node, "node", "", "this worker's node name (env: DISTSCHED_WORKER_NODE)")
	cmd.Flags().IntVar(&capacityUnits, "capacity-units", 0, "advertised vCPU capacity; 0 derives from cores * allocation-ratio")
	cmd.Flags().Float64Var(&allocationRatio, "allocation-ratio", 0, "oversubscription ratio applied to physical cores (env: DISTSCHED_WORKER_ALLOCATION_RATIO)")
	cmd.Flags().IntVar(&parallel, "slots", 0, "concurrent task slots advertised; defaults to capacity-units")
	cmd.Flags().StringVar(&cpuBinding, "cpu-binding", "exclusive", "exclusive (cpuset pinning) or shared (cgroup quota fair-share)")
	cmd.Flags().IntVar(&cpuWeightPerVCPU, "cpuweight-per-vcpu", 100, "cgroup cpu.weight granted per requested vCPU in shared mode")
	cmd.Flags().StringVar(&fetchTimeout, "fetch-timeout", "", "blocking_pop_tail timeout, e.g. 2s (env: DISTSCHED_WORKER_FETCH_TIMEOUT)")
	cmd.Flags().BoolVar(&resetCapacity, "reset-capacity", false, "reset this node's capacity counter to its registered total at startup")
	cmd.Flags().BoolVar(&clearQueue, "clear-queue", false, "drain this node's dispatch queue at startup")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&dumpStatePath, "dump-state", "", "write a point-in-time broker snapshot to this buntdb path and exit (in-memory broker only)")

	cmd.Flags().StringVar(&executable, "executable", "ffmpeg", "wrapped executable launched per task")
	cmd.Flags().StringVar(&spanPath, "span-path", "./spans.jsonl", "span file this worker appends one record to per invocation")
	cmd.Flags().StringVar(&sentinelDir, "sentinel-dir", "", "PID sentinel directory for the whitelist sampler; empty disables it")
	cmd.Flags().StringVar(&spanListen, "span-listen", "", "optional host:port serving a live span-tail websocket at /spans")

	return cmd
}
