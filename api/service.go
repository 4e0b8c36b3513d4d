// Package api exposes the meta-quoter over go-ethereum JSON-RPC.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/owlprotocol/veraswap-sub000/metaquoter"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	"github.com/owlprotocol/veraswap-sub000/state"
)

// Namespace is the JSON-RPC namespace the service is registered under.
const Namespace = "quoter"

// JSON-RPC error codes.
const (
	codeInvalidParams = -32602
	codeQuoteFailed   = -32000
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Quoter answers meta-quote queries.
type Quoter interface {
	MetaQuoteExactInputSingle(ctx context.Context, params metaquoter.MetaQuoteExactParams) ([]metaquoter.MetaQuoteExactSingleResult, error)
	MetaQuoteExactOutputSingle(ctx context.Context, params metaquoter.MetaQuoteExactParams) ([]metaquoter.MetaQuoteExactSingleResult, error)
	MetaQuoteExactInput(ctx context.Context, params metaquoter.MetaQuoteExactParams) ([]metaquoter.MetaQuoteExactResult, error)
	MetaQuoteExactOutput(ctx context.Context, params metaquoter.MetaQuoteExactParams) ([]metaquoter.MetaQuoteExactResult, error)
	MetaQuoteExactInputBest(ctx context.Context, params metaquoter.MetaQuoteExactParams) (metaquoter.BestResult, error)
	MetaQuoteExactOutputBest(ctx context.Context, params metaquoter.MetaQuoteExactParams) (metaquoter.BestResult, error)
}

// Config holds the configuration for the service.
type Config struct {
	Quoter Quoter
	// Snapshot returns the state queries read, for reporting only.
	Snapshot func() *state.Snapshot
	// HopCurrencies and PoolKeyOptions apply to queries that omit them.
	HopCurrencies  []currency.Currency
	PoolKeyOptions []metaquoter.PoolKeyOptions
	// Timeout bounds a single query. Zero is unbounded.
	Timeout time.Duration
	Logger  Logger
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Quoter == nil {
		return errors.New("config: Quoter is required")
	}
	if c.Snapshot == nil {
		return errors.New("config: Snapshot is required")
	}
	if c.Timeout < 0 {
		return errors.New("config: Timeout must not be negative")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Service is the JSON-RPC receiver. Its exported methods become
// quoter_<method> calls.
type Service struct {
	cfg Config
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg}, nil
}

// rpcError carries a JSON-RPC error code.
type rpcError struct {
	code int
	err  error
}

func (e *rpcError) Error() string  { return e.err.Error() }
func (e *rpcError) ErrorCode() int { return e.code }
func (e *rpcError) Unwrap() error  { return e.err }

func (s *Service) wrap(method string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, metaquoter.ErrInvalidExactAmount) || errors.Is(err, metaquoter.ErrIdenticalCurrencies) {
		return &rpcError{code: codeInvalidParams, err: err}
	}
	s.cfg.Logger.Error("Quote failed", "method", method, "error", err)
	return &rpcError{code: codeQuoteFailed, err: err}
}

func (s *Service) params(args QuoteArgs) metaquoter.MetaQuoteExactParams {
	p := metaquoter.MetaQuoteExactParams{
		ExactCurrency:    args.ExactCurrency,
		VariableCurrency: args.VariableCurrency,
		HopCurrencies:    args.HopCurrencies,
		ExactAmount:      args.ExactAmount.ToInt(),
		PoolKeyOptions:   args.PoolKeyOptions,
	}
	if p.HopCurrencies == nil {
		p.HopCurrencies = s.cfg.HopCurrencies
	}
	if p.PoolKeyOptions == nil {
		p.PoolKeyOptions = s.cfg.PoolKeyOptions
	}
	return p
}

func (s *Service) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout == 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *Service) MetaQuoteExactInputSingle(ctx context.Context, args QuoteArgs) ([]SingleResult, error) {
	ctx, cancel := s.context(ctx)
	defer cancel()
	res, err := s.cfg.Quoter.MetaQuoteExactInputSingle(ctx, s.params(args))
	if err != nil {
		return nil, s.wrap("metaQuoteExactInputSingle", err)
	}
	return mapSlice(res, toSingle), nil
}

func (s *Service) MetaQuoteExactOutputSingle(ctx context.Context, args QuoteArgs) ([]SingleResult, error) {
	ctx, cancel := s.context(ctx)
	defer cancel()
	res, err := s.cfg.Quoter.MetaQuoteExactOutputSingle(ctx, s.params(args))
	if err != nil {
		return nil, s.wrap("metaQuoteExactOutputSingle", err)
	}
	return mapSlice(res, toSingle), nil
}

func (s *Service) MetaQuoteExactInput(ctx context.Context, args QuoteArgs) ([]MultihopResult, error) {
	ctx, cancel := s.context(ctx)
	defer cancel()
	res, err := s.cfg.Quoter.MetaQuoteExactInput(ctx, s.params(args))
	if err != nil {
		return nil, s.wrap("metaQuoteExactInput", err)
	}
	return mapSlice(res, toMultihop), nil
}

func (s *Service) MetaQuoteExactOutput(ctx context.Context, args QuoteArgs) ([]MultihopResult, error) {
	ctx, cancel := s.context(ctx)
	defer cancel()
	res, err := s.cfg.Quoter.MetaQuoteExactOutput(ctx, s.params(args))
	if err != nil {
		return nil, s.wrap("metaQuoteExactOutput", err)
	}
	return mapSlice(res, toMultihop), nil
}

func (s *Service) MetaQuoteExactInputBest(ctx context.Context, args QuoteArgs) (*BestResult, error) {
	ctx, cancel := s.context(ctx)
	defer cancel()
	res, err := s.cfg.Quoter.MetaQuoteExactInputBest(ctx, s.params(args))
	if err != nil {
		return nil, s.wrap("metaQuoteExactInputBest", err)
	}
	best := toBest(res)
	return &best, nil
}

func (s *Service) MetaQuoteExactOutputBest(ctx context.Context, args QuoteArgs) (*BestResult, error) {
	ctx, cancel := s.context(ctx)
	defer cancel()
	res, err := s.cfg.Quoter.MetaQuoteExactOutputBest(ctx, s.params(args))
	if err != nil {
		return nil, s.wrap("metaQuoteExactOutputBest", err)
	}
	best := toBest(res)
	return &best, nil
}

// Snapshot reports the block and pool counts of the current state.
func (s *Service) Snapshot() SnapshotInfo {
	snap := s.cfg.Snapshot()
	counts := snap.Counts()
	return SnapshotInfo{
		ChainID:     hexutil.Uint64(snap.ChainID),
		BlockNumber: hexutil.Uint64(snap.BlockNumber),
		V2Pools:     counts.V2,
		V3Pools:     counts.V3,
		V4Pools:     counts.V4,
	}
}
