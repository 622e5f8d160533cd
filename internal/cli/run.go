package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bambriz/diagsink/internal/config"
	"github.com/bambriz/diagsink/internal/metrics"
	"github.com/bambriz/diagsink/internal/oplog"
	"github.com/bambriz/diagsink/internal/sink"
	"github.com/bambriz/diagsink/internal/source"
	"github.com/bambriz/diagsink/internal/store"
)

func runCmd() *cobra.Command {
	var configFile string
	var inputPath string

	cmd := &cobra.Command{
		Use:   "run [flags]",
		Short: "Capture diagnostics until the input ends, then upload",
		Long: `Start the sink: read "name;payload" records from the input (stdin by
default), append them to rotating segment files, and when the input is
exhausted or a signal arrives, drain all segments and ship them to the
configured object store.

Per-record append failures and per-segment upload failures are logged
and reported, never fatal: losing one record beats stalling the
benchmark that is emitting them.

Examples:
  my-benchmark | diagsink run
  diagsink run --config diagsink.yaml --input diagnostics.pipe`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Load config
			var cfg *config.Config
			var err error

			if configFile != "" {
				cfg, err = config.Load(configFile)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
			} else {
				cfg = config.Defaults()
			}

			// Set up the operational logger; the root logger owns the
			// file handle, sub-loggers only add context.
			rootLog, err := oplog.New(cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.File)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer rootLog.Close()
			log := rootLog.With("run_id", uuid.NewString())

			m := metrics.New()

			w, err := sink.NewWriter(cfg.Sink.Dir, cfg.Sink.BaseName, log, m)
			if err != nil {
				return fmt.Errorf("opening sink: %w", err)
			}

			pol := sink.Policy{
				MaxBytes: cfg.Sink.MaxFileBytes,
				Interval: time.Duration(cfg.Sink.CheckIntervalSeconds) * time.Second,
			}
			monitor := sink.NewMonitor(w, pol, log)

			st := buildStore(cfg)
			if st != nil {
				defer func() { _ = st.Close() }()
			}

			host, err := os.Hostname()
			if err != nil {
				host = "unknown-host"
			}
			uploader := sink.NewUploader(w, st, cfg.Remote.Prefix, host, log, m)

			// Context with signal handling for graceful shutdown
			ctx, cancel := signal.NotifyContext(
				context.Background(),
				syscall.SIGINT,
				syscall.SIGTERM,
			)
			defer cancel()

			stopMetrics := startMetricsServer(cfg.Metrics.Listen, m)
			defer stopMetrics()

			// Background rotation monitor; stopped before the flush so a
			// late tick never races the drain.
			monCtx, monCancel := context.WithCancel(ctx)
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				monitor.Run(monCtx)
			}()

			// Hot reload of the rotation policy.
			if configFile != "" {
				reloader := config.NewReloader(configFile)
				defer reloader.Close()
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = reloader.Start(monCtx)
				}()
				wg.Add(1)
				go func() {
					defer wg.Done()
					for newCfg := range reloader.Changes() {
						monitor.UpdatePolicy(sink.Policy{
							MaxBytes: newCfg.Sink.MaxFileBytes,
							Interval: time.Duration(newCfg.Sink.CheckIntervalSeconds) * time.Second,
						})
						log.LogConfigReload("applied", fmt.Sprintf(
							"max_file_bytes=%d check_interval=%ds",
							newCfg.Sink.MaxFileBytes, newCfg.Sink.CheckIntervalSeconds))
					}
				}()
			}

			log.LogStartup(cfg.Sink.Dir, cfg.Sink.BaseName, pol.MaxBytes, pol.Interval)
			fmt.Fprintf(os.Stderr, "diagsink v%s recording to %s/%s\n", Version, cfg.Sink.Dir, cfg.Sink.BaseName)

			input, closeInput, err := openInput(inputPath)
			if err != nil {
				monCancel()
				wg.Wait()
				return err
			}

			// Consume until EOF or signal. Append failures drop the one
			// record and keep the stream alive.
			srcErr := source.NewReader(input).Subscribe(ctx, func(rec sink.Record) {
				if err := w.Append(rec); err != nil {
					info, _ := w.CurrentInfo()
					log.LogAppendError(info.Path, err)
				}
			})
			closeInput()

			reason := "input exhausted"
			if ctx.Err() != nil {
				reason = "signal received"
			} else if srcErr != nil {
				reason = "input error"
				fmt.Fprintf(os.Stderr, "diagsink: %v\n", srcErr)
			}

			monCancel()
			wg.Wait()

			if err := uploader.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "diagsink: flush: %v\n", err)
			}

			if st != nil {
				// Uploads run on a fresh context: a SIGINT that ended the
				// recording phase must not abort the shipping phase.
				report := uploader.UploadAll(context.Background())
				printReport(report)
			}

			log.LogShutdown(reason)
			fmt.Fprintln(os.Stderr, "diagsink stopped.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "input file or pipe (- for stdin)")

	return cmd
}

// buildStore selects the object store backend from config, or nil when
// uploads are disabled.
func buildStore(cfg *config.Config) store.Store {
	switch {
	case cfg.Remote.Endpoint != "":
		opts := []store.HTTPOption{
			store.WithPutTimeout(time.Duration(cfg.Remote.TimeoutSeconds) * time.Second),
		}
		if cfg.Remote.Token != "" {
			opts = append(opts, store.WithBearerToken(cfg.Remote.Token))
		}
		return store.NewHTTPStore(cfg.Remote.Endpoint, cfg.Remote.Container, opts...)
	case cfg.Remote.LocalDir != "":
		return store.NewFSStore(cfg.Remote.LocalDir)
	default:
		return nil
	}
}

// openInput returns the record stream and a close function.
func openInput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path) //nolint:gosec // G304: path from caller
	if err != nil {
		return nil, nil, fmt.Errorf("opening input %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// startMetricsServer serves /metrics, /stats, and /health when listen is
// non-empty. Returns a stop function; a no-op when the server is disabled.
func startMetricsServer(listen string, m *metrics.Metrics) func() {
	if listen == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.PrometheusHandler())
	mux.HandleFunc("/stats", m.StatsHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "diagsink: metrics server: %v\n", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// printReport summarizes the upload batch on stderr.
func printReport(report sink.Report) {
	fmt.Fprintf(os.Stderr, "uploaded %d segment(s)", len(report.Succeeded))
	if len(report.Failed) > 0 {
		fmt.Fprintf(os.Stderr, ", %d failed", len(report.Failed))
	}
	fmt.Fprintln(os.Stderr)
	for _, f := range report.Failed {
		fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", f.Path, f.Err)
	}
}
