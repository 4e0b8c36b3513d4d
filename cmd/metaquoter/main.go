package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const DefaultClientStateBufferSize = 100

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "metaquoter",
		Short:        "Best-route quoting across V2, V3 and V4 pools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve meta-quotes over JSON-RPC",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen-addr", ":8545", "JSON-RPC listen address")
	serveCmd.Flags().StringSlice("cors-origins", []string{"*"}, "allowed websocket origins")
	serveCmd.Flags().String("stream-url", "", "pool state stream URL (ws:// or http://)")
	serveCmd.Flags().String("snapshot-file", "", "static pool state snapshot (JSON)")
	serveCmd.Flags().Uint("buffer-size", DefaultClientStateBufferSize, "buffered states from the stream")
	addQuoterFlags(serveCmd)

	root.AddCommand(serveCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote once against a snapshot file and print the result",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("snapshot-file", "", "static pool state snapshot (JSON)")
	quoteCmd.Flags().String("exact", "", "exact currency address")
	quoteCmd.Flags().String("variable", "", "variable currency address")
	quoteCmd.Flags().String("amount", "", "exact amount (decimal or 0x hex)")
	quoteCmd.Flags().Bool("exact-output", false, "treat the amount as the output")
	quoteCmd.Flags().String("route", "best", "route kind (single, multihop, best)")
	addQuoterFlags(quoteCmd)

	root.AddCommand(quoteCmd)
	return root
}

func addQuoterFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().Int("workers", 0, "candidates simulated concurrently per query (default: number of CPUs)")
	cmd.Flags().Duration("timeout", 10*time.Second, "per-query timeout, 0 for none")
	cmd.Flags().StringSlice("versions", []string{"v2", "v3", "v4"}, "enabled pool versions")
	cmd.Flags().StringSlice("hop-currencies", nil, "default hop currencies (comma-separated)")
	cmd.Flags().String("pool-manager", "", "V4 pool manager address")
	cmd.Flags().String("quoter", "", "V4 quoter address")
	cmd.Flags().Uint64("gas-limit", 0, "gas limit of a single V4 quote, 0 for none")
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
