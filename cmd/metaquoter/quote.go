package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/owlprotocol/veraswap-sub000/api"
	"github.com/owlprotocol/veraswap-sub000/cmd/metaquoter/config"
	"github.com/owlprotocol/veraswap-sub000/metaquoter"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	"github.com/owlprotocol/veraswap-sub000/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var errUnknownRoute = errors.New("unknown route kind")

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.SnapshotFile == "" {
		return errors.New("snapshot-file is required")
	}

	args, err := quoteArgs(cmd)
	if err != nil {
		return err
	}
	exactOutput, _ := cmd.Flags().GetBool("exact-output")
	route, _ := cmd.Flags().GetString("route")

	logger := newLogger(os.Stderr, cfg.LogLevel)

	snap, err := state.LoadFile(cfg.SnapshotFile, cfg.StateOptions())
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	quoter, err := metaquoter.New(&metaquoter.Config{
		State:    func() metaquoter.StateReader { return snap },
		Schedule: cfg.Schedule,
		Versions: cfg.Versions,
		Workers:  cfg.Workers,
		Logger:   logger.With("component", "metaquoter"),
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		return fmt.Errorf("init metaquoter: %w", err)
	}

	svc, err := api.NewService(api.Config{
		Quoter:         quoter,
		Snapshot:       func() *state.Snapshot { return snap },
		HopCurrencies:  cfg.HopCurrencies,
		PoolKeyOptions: cfg.PoolKeyOptions,
		Timeout:        cfg.Timeout,
		Logger:         logger.With("component", "api"),
	})
	if err != nil {
		return fmt.Errorf("init api: %w", err)
	}

	result, err := quote(cmd.Context(), svc, args, exactOutput, route)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func quoteArgs(cmd *cobra.Command) (api.QuoteArgs, error) {
	exact, _ := cmd.Flags().GetString("exact")
	variable, _ := cmd.Flags().GetString("variable")
	amount, _ := cmd.Flags().GetString("amount")

	for name, addr := range map[string]string{"exact": exact, "variable": variable} {
		if !common.IsHexAddress(addr) {
			return api.QuoteArgs{}, fmt.Errorf("%s: invalid currency address %q", name, addr)
		}
	}
	value, ok := new(big.Int).SetString(amount, 0)
	if !ok {
		return api.QuoteArgs{}, fmt.Errorf("amount: invalid number %q", amount)
	}

	return api.QuoteArgs{
		ExactCurrency:    currency.HexToCurrency(exact),
		VariableCurrency: currency.HexToCurrency(variable),
		ExactAmount:      (*hexutil.Big)(value),
	}, nil
}

// quote dispatches to the service method matching the trade direction and
// route kind.
func quote(ctx context.Context, svc *api.Service, args api.QuoteArgs, exactOutput bool, route string) (any, error) {
	switch route {
	case "single":
		if exactOutput {
			return svc.MetaQuoteExactOutputSingle(ctx, args)
		}
		return svc.MetaQuoteExactInputSingle(ctx, args)
	case "multihop":
		if exactOutput {
			return svc.MetaQuoteExactOutput(ctx, args)
		}
		return svc.MetaQuoteExactInput(ctx, args)
	case "best":
		if exactOutput {
			return svc.MetaQuoteExactOutputBest(ctx, args)
		}
		return svc.MetaQuoteExactInputBest(ctx, args)
	}
	return nil, fmt.Errorf("%w: %q", errUnknownRoute, route)
}
