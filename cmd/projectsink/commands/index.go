package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	dbm "github.com/tendermint/tm-db"

	"github.com/protocolindex/projectsink/config"
	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/internal/indexer/project"
	"github.com/protocolindex/projectsink/internal/indexer/sink"
	"github.com/protocolindex/projectsink/internal/indexer/sink/memory"
	"github.com/protocolindex/projectsink/internal/indexer/sink/psql"
	"github.com/protocolindex/projectsink/internal/indexer/source"
	"github.com/protocolindex/projectsink/internal/stakewatch"
	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/libs/service"
	"github.com/protocolindex/projectsink/types"
)

const metricsShutdownTimeout = 4 * time.Second

// MakeIndexCommand returns the command replaying a stream of transactions
// through the project handlers.
func MakeIndexCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		dryRun     bool
		skipSchema bool
	)
	cmd := &cobra.Command{
		Use:   "index [file|-]",
		Short: "Index JSON-lines transactions read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			if dryRun {
				conf.Indexer.Sink = config.SinkMemory
			}
			return runIndex(cmd.Context(), conf, logger, path, !skipSchema, dryRun, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep rows in memory and print a summary instead of writing to the database")
	cmd.Flags().BoolVar(&skipSchema, "skip-schema", false, "do not apply the schema before indexing")
	return cmd
}

func runIndex(
	ctx context.Context,
	conf *config.Config,
	logger log.Logger,
	path string,
	initSchema, dryRun bool,
	out io.Writer,
) error {
	manifest, err := conf.Tokens.Resolve()
	if err != nil {
		return err
	}
	tokens, err := indexer.NewTokenSets(manifest.Project, manifest.ProjectDetail, manifest.ProjectScript)
	if err != nil {
		return err
	}

	var db dbm.DB
	if dryRun {
		db = dbm.NewMemDB()
	} else if db, err = config.DefaultDBProvider(&config.DBContext{ID: "stakewatch", Config: conf}); err != nil {
		return fmt.Errorf("opening stake watch database: %w", err)
	}
	registry := stakewatch.NewRegistry(db, logger.With("module", "stakewatch"))
	defer registry.Close()

	metrics := indexer.NopMetrics()
	if conf.Instrumentation.Prometheus {
		metrics = indexer.PrometheusMetrics(conf.Instrumentation.Namespace)
		srv := startPrometheusServer(conf.Instrumentation.PrometheusListenAddr, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Error("prometheus server shutdown", "err", err)
			}
		}()
	}

	snk, err := sink.FromConfig(conf, registry, logger.With("module", "sink"))
	if err != nil {
		return err
	}
	if ps, ok := snk.(*psql.Sink); ok && initSchema {
		if err := psql.InitSchema(ctx, ps.DB()); err != nil {
			return err
		}
	}

	src, err := source.OpenJSONLines(path)
	if err != nil {
		return err
	}
	defer src.Close()

	handlers := indexer.NewRegistry()
	project.NewHandlers(project.HandlersArgs{
		Driver:  snk,
		Network: types.Network(conf.Chain.Network),
		Logger:  logger.With("module", "project"),
		Metrics: metrics,
	}).Register(handlers)

	args := indexer.ServiceArgs{
		Source: src,
		Processor: indexer.NewProcessor(indexer.ProcessorArgs{
			Classifier: indexer.NewClassifier(tokens),
			Handlers:   handlers,
			Logger:     logger.With("module", "processor"),
			Metrics:    metrics,
		}),
		Logger: logger.With("module", "indexer"),
	}
	if store, ok := snk.(indexer.OutputStore); ok {
		args.Outputs = store
	}
	svc := indexer.NewService(args)

	group := service.NewGroup(logger, "Projectsink", snk, svc)
	if err := group.Start(ctx); err != nil {
		return err
	}
	select {
	case <-svc.Done():
	case <-ctx.Done():
	}
	if err := group.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
		logger.Error("stopping services", "err", err)
	}
	group.Wait()
	if err := svc.Err(); err != nil {
		return err
	}

	fmt.Fprintf(out, "processed %d transactions\n", svc.Processed())
	if mem, ok := snk.(*memory.Sink); ok {
		printSummary(out, mem)
	}
	return ctx.Err()
}

func printSummary(out io.Writer, mem *memory.Sink) {
	for _, table := range []string{project.TableProject, project.TableProjectDetail, project.TableProjectScript} {
		fmt.Fprintf(out, "%s: %d rows\n", table, len(mem.Rows(table)))
	}
	fmt.Fprintf(out, "notifications: %d\n", len(mem.Notifications()))
	fmt.Fprintf(out, "refreshes: %d\n", len(mem.Refreshes()))
	fmt.Fprintf(out, "watches: %d\n", len(mem.Watches()))
}

func startPrometheusServer(addr string, logger log.Logger) *http.Server {
	srv := &http.Server{
		Addr: addr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{},
			),
		),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}
