package cmd

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kgmicrobe/kgreason/internal/reason"
	"kgmicrobe/kgreason/internal/server"
)

var (
	serveListen string
	serveNodes  string
	serveEdges  string
	serveWarm   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve queries over HTTP with Prometheus metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("listen") {
			cfg.Listen = serveListen
		}

		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		engine := newEngine(store, serveNodes, serveEdges, reason.NewMetrics(reg))

		if serveWarm {
			if _, err := engine.Graph(ctx); err != nil {
				logger.Warn("graph warm-up failed, graph queries will retry", zap.Error(err))
			}
		}

		return server.New(engine, store, reg, logger).Run(ctx, cfg.Listen, cfg.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveNodes, "nodes", "", "Node file used to build the in-memory graph")
	serveCmd.Flags().StringVar(&serveEdges, "edges", "", "Edge file used to build the in-memory graph")
	serveCmd.Flags().BoolVar(&serveWarm, "warm", false, "Build the full graph before accepting requests")
	rootCmd.AddCommand(serveCmd)
}
