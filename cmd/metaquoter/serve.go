package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/owlprotocol/veraswap-sub000/api"
	"github.com/owlprotocol/veraswap-sub000/cmd/metaquoter/config"
	"github.com/owlprotocol/veraswap-sub000/metaquoter"
	"github.com/owlprotocol/veraswap-sub000/state"
	"github.com/owlprotocol/veraswap-sub000/streams/jsonrpc/client"
	"github.com/owlprotocol/veraswap-sub000/streams/jsonrpc/stateops"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.StreamURL == "" && cfg.SnapshotFile == "" {
		return errors.New("one of stream-url or snapshot-file is required")
	}

	rootLogger := newLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := state.NewStore(cfg.StateOptions(), rootLogger.With("component", "state-store"), registry)
	g, ctx := errgroup.WithContext(ctx)

	if cfg.SnapshotFile != "" {
		snap, err := state.LoadFile(cfg.SnapshotFile, cfg.StateOptions())
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		store.Swap(snap)
	} else {
		streamClient, err := client.NewClient(ctx, client.Config{
			URL:          cfg.StreamURL,
			Logger:       rootLogger.With("component", "jsonrpc-client"),
			Registry:     registry,
			BufferSize:   cfg.BufferSize,
			StateDecoder: stateops.DecodeStateJSON,
		})
		if err != nil {
			return fmt.Errorf("init stream client: %w", err)
		}
		g.Go(func() error {
			return store.Follow(ctx, streamClient.State())
		})
		g.Go(func() error {
			if err, ok := <-streamClient.Err(); ok {
				return fmt.Errorf("stream client: %w", err)
			}
			return nil
		})
	}

	quoter, err := metaquoter.New(&metaquoter.Config{
		State:    store.Reader,
		Schedule: cfg.Schedule,
		Versions: cfg.Versions,
		Workers:  cfg.Workers,
		Logger:   rootLogger.With("component", "metaquoter"),
		Registry: registry,
	})
	if err != nil {
		return fmt.Errorf("init metaquoter: %w", err)
	}

	svc, err := api.NewService(api.Config{
		Quoter:         quoter,
		Snapshot:       store.Load,
		HopCurrencies:  cfg.HopCurrencies,
		PoolKeyOptions: cfg.PoolKeyOptions,
		Timeout:        cfg.Timeout,
		Logger:         rootLogger.With("component", "api"),
	})
	if err != nil {
		return fmt.Errorf("init api: %w", err)
	}
	server, err := api.NewRPCServer(svc)
	if err != nil {
		return err
	}
	defer server.Stop()

	handler := api.Handler(server, registry, cfg.CORSOrigins)
	g.Go(func() error {
		return api.Serve(ctx, cfg.ListenAddr, handler, rootLogger.With("component", "http"))
	})

	rootLogger.Info("metaquoter started",
		"listen_addr", cfg.ListenAddr,
		"stream_url", cfg.StreamURL,
		"snapshot_file", cfg.SnapshotFile,
		"workers", cfg.Workers,
		"versions", cfg.Versions.String(),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		rootLogger.Error("metaquoter stopped", "error", err)
		return err
	}
	rootLogger.Info("metaquoter stopped")
	return nil
}
