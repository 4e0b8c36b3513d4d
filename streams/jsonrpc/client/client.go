package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/owlprotocol/veraswap-sub000/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	// RpcNamespace is the namespace under which the streamer is registered.
	RpcNamespace                  = "veraswap"
	StateStreamSubscriptionMethod = "subscribePoolState"

	EventTypeFull = "full"
	EventTypeDiff = "diff"
)

// ErrUnsupportedEvent is returned for events the processor cannot apply.
// Only full snapshots are consumed; diff events are skipped.
var ErrUnsupportedEvent = errors.New("unsupported subscription event")

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DecoderFunc decodes the data of one protocol according to its schema.
type DecoderFunc func(schema engine.ProtocolSchema, data json.RawMessage) (any, error)

// Config holds the configuration for the client.
type Config struct {
	URL          string
	Logger       Logger
	Registry     prometheus.Registerer
	BufferSize   uint
	StateDecoder DecoderFunc
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.StateDecoder == nil {
		return errors.New("config: StateDecoder is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	return nil
}

// clientMetrics tracks the stream as the client sees it.
type clientMetrics struct {
	events     *prometheus.CounterVec
	reconnects prometheus.Counter
	lastBlock  prometheus.Gauge
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	factory := promauto.With(reg)
	return &clientMetrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metaquoter",
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Subscription events received, by outcome.",
		}, []string{"status"}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "metaquoter",
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Failed connection or subscription attempts.",
		}),
		lastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "metaquoter",
			Subsystem: "stream",
			Name:      "last_block",
			Help:      "Block number of the last state decoded.",
		}),
	}
}

// SubscriptionEvent is the wrapper object received from the server.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// -----------------------------------------------------------------------------
// StreamProcessor
// -----------------------------------------------------------------------------

// StreamProcessor parses events into typed states and broadcasts them. It is
// decoupled from the networking layer.
type StreamProcessor struct {
	lastBlock    *uint64
	stateDecoder DecoderFunc
	stateCh      chan *engine.State
	logger       Logger
}

// NewStreamProcessor creates a pure logic processor without networking.
func NewStreamProcessor(logger Logger, bufferSize uint, stateDecoder DecoderFunc) *StreamProcessor {
	return &StreamProcessor{
		logger:       logger,
		stateCh:      make(chan *engine.State, bufferSize),
		stateDecoder: stateDecoder,
	}
}

// State returns a read-only channel for receiving new states.
func (sp *StreamProcessor) State() <-chan *engine.State {
	return sp.stateCh
}

// ProcessMessage accepts a raw JSON message (from WS or a file), decodes it
// and broadcasts the resulting state.
func (sp *StreamProcessor) ProcessMessage(rawData json.RawMessage) error {
	processingStart := time.Now()
	var event SubscriptionEvent

	if err := json.Unmarshal(rawData, &event); err != nil {
		return fmt.Errorf("failed to unmarshal subscription event: %w", err)
	}

	switch event.Type {
	case EventTypeFull:
		return sp.handleFullState(event, processingStart)
	case EventTypeDiff:
		return fmt.Errorf("%w: %s events are not applied, waiting for the next full state", ErrUnsupportedEvent, event.Type)
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrUnsupportedEvent, event.Type)
	}
}

func (sp *StreamProcessor) handleFullState(event SubscriptionEvent, start time.Time) error {
	state, err := DecodeState(event.Payload, sp.stateDecoder)
	if err != nil {
		return err
	}

	if state.Block.Number != nil && sp.lastBlock != nil && state.Block.Number.Uint64() < *sp.lastBlock {
		sp.logger.Warn(
			"Received state older than the last one; discarding.",
			"last_known_block", *sp.lastBlock,
			"state_block", state.Block.Number,
		)
		return nil // Non-fatal, just ignored
	}

	processingDur := time.Since(start)
	sp.logMetrics(state, processingDur, event.SentAt)

	if state.Block.Number != nil {
		block := state.Block.Number.Uint64()
		sp.lastBlock = &block
	}
	sp.stateCh <- state
	return nil
}

// DecodeState decodes a full state payload, typing each protocol's data with
// decode.
func DecodeState(payload json.RawMessage, decode DecoderFunc) (*engine.State, error) {
	var wire wireState
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal full state payload: %w", err)
	}

	state := &engine.State{
		ChainID:   wire.ChainID,
		Timestamp: wire.Timestamp,
		Block:     wire.Block,
		Protocols: make(map[engine.ProtocolID]engine.ProtocolState, len(wire.Protocols)),
	}

	for pID, protocolState := range wire.Protocols {
		var typedData any
		// a failed protocol may carry no data
		if protocolState.Error == "" || len(protocolState.Data) > 0 {
			var err error
			typedData, err = decode(protocolState.Schema, protocolState.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode state for protocol %s: %w", pID, err)
			}
		}

		state.Protocols[pID] = engine.ProtocolState{
			Meta:              protocolState.Meta,
			SyncedBlockNumber: protocolState.SyncedBlockNumber,
			Schema:            protocolState.Schema,
			Data:              typedData,
			Error:             protocolState.Error,
		}
	}
	return state, nil
}

func (sp *StreamProcessor) logMetrics(state *engine.State, processingDur time.Duration, sentAt int64) {
	clientFinishTime := time.Now()
	blockTimestamp := time.Unix(int64(state.Block.Timestamp), 0)
	clientStartTime := clientFinishTime.Add(-processingDur)
	serverFinishTime := time.Unix(0, sentAt)

	transportTime := clientStartTime.Sub(serverFinishTime)
	totalLatency := clientFinishTime.Sub(blockTimestamp)

	sp.logger.Debug("State Processed",
		"block", state.Block.Number,
		"protocols", len(state.Protocols),
		"failed", state.FailedProtocols(),
		"latency_total_ms", totalLatency.Milliseconds(),
		"latency_transport_ms", transportTime.Milliseconds(),
		"latency_proc_ms", processingDur.Milliseconds(),
	)
}

// -----------------------------------------------------------------------------
// Client (Networking Wrapper)
// -----------------------------------------------------------------------------

// Client manages the connection and uses StreamProcessor for logic.
type Client struct {
	processor *StreamProcessor
	errCh     chan error
	logger    Logger
	metrics   *clientMetrics
}

// NewClient creates a new client and starts streaming until ctx ends.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := &Client{
		processor: NewStreamProcessor(cfg.Logger, cfg.BufferSize, cfg.StateDecoder),
		errCh:     make(chan error, 1),
		logger:    cfg.Logger,
		metrics:   newClientMetrics(cfg.Registry),
	}

	go client.run(ctx, cfg.URL)
	return client, nil
}

// State delegates to the processor's state channel.
func (c *Client) State() <-chan *engine.State {
	return c.processor.State()
}

// Err returns a read-only channel for receiving fatal (unrecoverable) errors.
// It is closed when the client stops.
func (c *Client) Err() <-chan error {
	return c.errCh
}

// run handles the networking lifecycle and feeds data to the processor.
func (c *Client) run(ctx context.Context, url string) {
	defer close(c.errCh)
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			c.logger.Info("Client context canceled, shutting down.")
			return
		}

		c.logger.Info("Attempting to connect to RPC server", "url", url)
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			c.metrics.reconnects.Inc()
			c.logger.Error("Failed to connect to RPC server, will retry...", "error", err, "delay", reconnectDelay)
			if !sleep(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("Successfully connected to RPC server.")
		reconnectDelay = initialReconnectDelay

		err = c.subscribeAndProcess(ctx, rpcClient)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Context canceled, shutting down.")
				return
			}
			c.metrics.reconnects.Inc()
			c.logger.Error("Subscription failed, will reconnect...", "error", err, "delay", reconnectDelay)
			if !sleep(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
		}
	}
}

func (c *Client) subscribeAndProcess(ctx context.Context, rpcClient *rpc.Client) error {
	defer rpcClient.Close()

	rawCh := make(chan json.RawMessage)
	sub, err := rpcClient.Subscribe(ctx, RpcNamespace, rawCh, StateStreamSubscriptionMethod)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	c.logger.Info("Successfully subscribed. Waiting for data...")
	for {
		select {
		case rawData := <-rawCh:
			c.process(rawData)
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping subscription.")
			return ctx.Err()
		}
	}
}

func (c *Client) process(rawData json.RawMessage) {
	err := c.processor.ProcessMessage(rawData)
	switch {
	case err == nil:
		c.metrics.events.WithLabelValues("ok").Inc()
		if c.processor.lastBlock != nil {
			c.metrics.lastBlock.Set(float64(*c.processor.lastBlock))
		}
	case errors.Is(err, ErrUnsupportedEvent):
		c.metrics.events.WithLabelValues("skipped").Inc()
		c.logger.Debug("Skipping event", "error", err)
	default:
		c.metrics.events.WithLabelValues("failed").Inc()
		c.logger.Error("Error processing message", "error", err)
	}
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
