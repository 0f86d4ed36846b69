// Copyright (C) 2025 meshkv
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshkv/dht/config"
	"github.com/meshkv/dht/health"
	"github.com/meshkv/dht/identity"
	"github.com/meshkv/dht/internal/logger"
	"github.com/meshkv/dht/internal/metrics"
	"github.com/meshkv/dht/node"
	"github.com/meshkv/dht/store"
	"github.com/meshkv/dht/store/postgres"
	"github.com/meshkv/dht/transport/ws"
)

var (
	runConfigDir     string
	runEnvironment   string
	runListenTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single DHT node",
	Long: `Run loads a node's configuration, identity key and bootstrap contacts,
starts its WebSocket transport, data store, and optional metrics and
health endpoints, and blocks until interrupted.`,
	Example: `  dhtbench run --config-dir ./config --environment production`,
	RunE:    runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runConfigDir, "config-dir", "config", "directory to search for <environment>.yaml/default.yaml/config.yaml")
	runCmd.Flags().StringVar(&runEnvironment, "environment", "", "environment name selecting <environment>.yaml (overrides DHT_ENV/ENVIRONMENT; an environment set in the config file is kept)")
	runCmd.Flags().DurationVar(&runListenTimeout, "dial-timeout", 5*time.Second, "outbound WebSocket dial timeout")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: runConfigDir, Environment: runEnvironment})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := buildLogger(cfg.Logging)

	kp, err := identity.LoadOrGenerateKeyFile(cfg.Node.IdentityKeyPath)
	if err != nil {
		return fmt.Errorf("load identity key: %w", err)
	}

	ds, err := buildDataStore(cmd.Context(), cfg.Store)
	if err != nil {
		return fmt.Errorf("build data store: %w", err)
	}

	tr := ws.New(runListenTimeout, cfg.Node.RPCTimeout, cfg.Node.RPCTimeout)

	var nodeMetrics node.Metrics
	if cfg.Metrics.Enabled {
		nodeMetrics = metrics.NewPrometheusCollector()
	}

	n, err := node.New(cfg.Node.ToNodeConfig(), kp, tr, ds, log, nodeMetrics)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}

	dump, err := loadBootstrap(cfg.Node.BootstrapFile)
	if err != nil {
		return fmt.Errorf("load bootstrap file: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	defer n.Stop()

	if len(dump.Contacts) > 0 {
		joinCtx, joinCancel := context.WithTimeout(ctx, cfg.Node.LookupTimeout)
		if err := n.Join(joinCtx, dump); err != nil {
			log.Warn("join failed", logger.Error(err))
		}
		joinCancel()
	}

	wsAddr := listenAddrFromURI(cfg.Node.URI)
	wsServer := &http.Server{Addr: wsAddr, Handler: tr.Handler()}
	go func() {
		log.Info("transport listening", logger.String("addr", wsAddr))
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("transport server failed", logger.Error(err))
		}
	}()
	defer shutdownServer(wsServer)

	if cfg.Metrics.Enabled {
		metricsServer := startMetricsServer(cfg.Metrics, log)
		defer shutdownServer(metricsServer)
	}

	if cfg.Health.Enabled {
		healthServer := startHealthServer(cfg.Health, n, ds, wsAddr, log)
		defer healthServer.Stop(context.Background())
	}

	log.Info("node running", logger.String("id", n.ID().String()), logger.String("uri", cfg.Node.URI))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	return nil
}

func buildLogger(cfg config.LoggingConfig) *logger.StructuredLogger {
	var level logger.Level
	switch strings.ToUpper(cfg.Level) {
	case "DEBUG":
		level = logger.DebugLevel
	case "WARN":
		level = logger.WarnLevel
	case "ERROR":
		level = logger.ErrorLevel
	default:
		level = logger.InfoLevel
	}

	out := os.Stdout
	log := logger.NewLogger(out, level)
	log.SetPrettyPrint(cfg.Format != "json")
	return log
}

func buildDataStore(ctx context.Context, cfg config.StoreConfig) (store.DataStore, error) {
	switch cfg.Backend {
	case "postgres":
		return postgres.NewStore(ctx, &postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		})
	case "memory", "":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

func loadBootstrap(path string) (node.Dump, error) {
	if path == "" {
		return node.Dump{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return node.Dump{}, nil
		}
		return node.Dump{}, err
	}
	var dump node.Dump
	if err := json.Unmarshal(data, &dump); err != nil {
		return node.Dump{}, err
	}
	return dump, nil
}

// listenAddrFromURI strips a ws(s):// scheme down to a bindable host:port.
func listenAddrFromURI(uri string) string {
	addr := uri
	addr = strings.TrimPrefix(addr, "wss://")
	addr = strings.TrimPrefix(addr, "ws://")
	if i := strings.Index(addr, "/"); i >= 0 {
		addr = addr[:i]
	}
	return addr
}

func startMetricsServer(cfg config.MetricsConfig, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, metrics.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Info("metrics listening", logger.String("addr", srv.Addr), logger.String("path", path))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", logger.Error(err))
		}
	}()
	return srv
}

func startHealthServer(cfg config.HealthConfig, n *node.Node, ds store.DataStore, wsAddr string, log logger.Logger) *health.Server {
	checker := health.NewHealthChecker(5 * time.Second)
	checker.SetLogger(log)
	checker.RegisterCheck("routing_table", health.RoutingTableHealthCheck(func() int {
		contacts, _ := n.RoutingTableSize()
		return contacts
	}))
	checker.RegisterCheck("data_store", health.DataStoreHealthCheck(ds))
	checker.RegisterCheck("transport", health.TransportHealthCheck(func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", wsAddr)
		if err != nil {
			return err
		}
		return conn.Close()
	}))

	srv := health.NewServer(checker, log, cfg.Port, cfg.Path)
	_ = srv.Start()
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
