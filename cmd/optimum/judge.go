package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/go-optimum/infrastructure/events"
	"github.com/ahrav/go-optimum/infrastructure/middleware"
	"github.com/ahrav/go-optimum/internal/application"
	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

type judgeOptions struct {
	output      string
	metricsAddr string
	traceFile   string
}

func newJudgeCmd(root *rootOptions) *cobra.Command {
	opts := &judgeOptions{}
	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Judge every trial of a run config",
		Long: "Load the run config, judge its trials with the configured strategy, log each new optimum, " +
			"and print the final optimal set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.output != "text" && opts.output != "json" {
				return fmt.Errorf("invalid output %q: want text or json", opts.output)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), root.logLevel, root.logFormat)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runJudge(ctx, root.configPath, opts, logger, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.output, "output", "text", "output format: text or json")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address until interrupted")
	cmd.Flags().StringVar(&opts.traceFile, "trace-file", "", "write finished spans as JSON to this file")
	return cmd
}

func runJudge(ctx context.Context, configPath string, opts *judgeOptions, logger *slog.Logger, out io.Writer) error {
	config, err := application.LoadRunConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	problem, idx := application.BuildProblem(config)
	trials, err := application.BuildTrials(config, problem, idx)
	if err != nil {
		return fmt.Errorf("building trials: %w", err)
	}

	tp, err := newTracerProvider(opts.traceFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(registry)
	if opts.metricsAddr != "" {
		_, shutdown, err := serveMetrics(opts.metricsAddr, registry, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	proxy := events.NewProxy(events.WithLogger(logger))
	proxy.SubscribeFunc(func(judge ports.SolutionJudge, solutions []*domain.Trial, trial *domain.Trial) {
		logger.Info("new optimal solution",
			slog.String("judge", judge.Name()),
			slog.String("trial_id", trial.ID()),
			slog.Float64("satisfaction", trial.Satisfaction()),
			slog.Int("optimal_solutions", len(solutions)),
		)
	})

	judge, err := application.NewJudge(config, application.NewDefaultJudgeRegistry(), idx, ports.JudgeDeps{
		Listener: proxy,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating judge: %w", err)
	}
	observer := middleware.NewOTelJudgeObserver(metrics, middleware.WithTracerProvider(tp))
	instrumented := middleware.NewInstrumentedJudge(judge, observer)

	runner, err := application.NewRunner(instrumented, config.Runner,
		application.WithRunnerLogger(logger),
		application.WithRunnerTracerProvider(tp),
	)
	if err != nil {
		return err
	}

	report, runErr := runner.Run(ctx, trials)
	if report != nil {
		if err := writeReport(out, opts.output, judge.Name(), report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	if opts.metricsAddr != "" {
		logger.Info("run finished; serving metrics until interrupted", slog.String("addr", opts.metricsAddr))
		<-ctx.Done()
	}
	return nil
}

// newTracerProvider returns a provider that always samples. Spans carry the
// trace ids used for log correlation; with a non-empty path they are also
// exported to that file, which is closed when the provider shuts down.
func newTracerProvider(path string) (*sdktrace.TracerProvider, error) {
	if path == "" {
		return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample())), nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(closeOnShutdown{f}),
	), nil
}

// closeOnShutdown closes the trace file after the batcher, which is
// registered first and therefore shut down first, has flushed.
type closeOnShutdown struct{ f *os.File }

func (closeOnShutdown) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (closeOnShutdown) OnEnd(sdktrace.ReadOnlySpan) {}

func (closeOnShutdown) ForceFlush(context.Context) error { return nil }

func (c closeOnShutdown) Shutdown(context.Context) error { return c.f.Close() }

// serveMetrics starts a promhttp endpoint and returns its bound address
// and a function that stops it.
func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

type reportTrial struct {
	ID           string  `json:"id"`
	Satisfaction float64 `json:"satisfaction"`
}

type reportRejection struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type reportJSON struct {
	Judge    string            `json:"judge"`
	Judged   int               `json:"judged"`
	Rejected []reportRejection `json:"rejected"`
	Best     float64           `json:"best"`
	Optimal  []reportTrial     `json:"optimal"`
}

func writeReport(w io.Writer, format, judgeName string, report *application.RunReport) error {
	doc := reportJSON{
		Judge:    judgeName,
		Judged:   report.Judged,
		Rejected: make([]reportRejection, 0, len(report.Rejected)),
		Best:     report.Best,
		Optimal:  make([]reportTrial, 0, len(report.Optimal)),
	}
	for _, r := range report.Rejected {
		doc.Rejected = append(doc.Rejected, reportRejection{ID: r.TrialID, Error: r.Err.Error()})
	}
	for _, t := range report.Optimal {
		doc.Optimal = append(doc.Optimal, reportTrial{ID: t.ID(), Satisfaction: t.Satisfaction()})
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	fmt.Fprintf(w, "judge: %s\n", doc.Judge)
	fmt.Fprintf(w, "judged: %d, rejected: %d\n", doc.Judged, len(doc.Rejected))
	for _, r := range doc.Rejected {
		fmt.Fprintf(w, "  rejected %s: %s\n", r.ID, r.Error)
	}
	fmt.Fprintf(w, "best satisfaction: %g\n", doc.Best)
	fmt.Fprintf(w, "optimal solutions (%d):\n", len(doc.Optimal))
	for _, t := range doc.Optimal {
		fmt.Fprintf(w, "  %s satisfaction=%g\n", t.ID, t.Satisfaction)
	}
	return nil
}
