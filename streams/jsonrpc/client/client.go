// Package client keeps a local replica of a remote pool registry. It subscribes to the registry
// stream, applies diffs on top of the last full view, and publishes an indexed snapshot after
// every update.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
	"github.com/defistate/pool-factory-go/protocols/poolfactory/indexer"
	"github.com/ethereum/go-ethereum/rpc"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	// RpcNamespace is the namespace under which the factory is registered.
	RpcNamespace                     = "factory"
	RegistryStreamSubscriptionMethod = "subscribeRegistryStream"
)

// ErrUnknownSchema is returned for payloads whose schema this client can't decode.
var ErrUnknownSchema = errors.New("unknown payload schema")

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PatcherFunc applies a diff to a previous view.
type PatcherFunc func(prev poolfactory.View, diff poolfactory.Diff) (poolfactory.View, error)

// DialFunc opens an RPC connection.
type DialFunc func(ctx context.Context, url string) (*rpc.Client, error)

// Config holds the configuration for the client.
type Config struct {
	URL        string
	Logger     Logger
	BufferSize uint
	// Patcher defaults to poolfactory.Patcher.
	Patcher PatcherFunc
	// Dial defaults to rpc.DialContext.
	Dial DialFunc
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
	return nil
}

// -----------------------------------------------------------------------------
// StreamProcessor
// -----------------------------------------------------------------------------

// StreamProcessor handles the business logic of parsing events, maintaining
// the latest view, applying diffs, and broadcasting updates.
// It is decoupled from the networking layer.
type StreamProcessor struct {
	lastView *poolfactory.View
	patcher  PatcherFunc
	indexer  *indexer.Indexer
	stateCh  chan indexer.IndexedPoolFactory
	logger   Logger
}

// NewStreamProcessor creates a pure logic processor without networking.
func NewStreamProcessor(logger Logger, bufferSize uint, patcher PatcherFunc) *StreamProcessor {
	if patcher == nil {
		patcher = poolfactory.Patcher
	}
	return &StreamProcessor{
		logger:  logger,
		stateCh: make(chan indexer.IndexedPoolFactory, bufferSize),
		patcher: patcher,
		indexer: indexer.New(),
	}
}

// State returns a read-only channel for receiving new registry snapshots.
func (sp *StreamProcessor) State() <-chan indexer.IndexedPoolFactory {
	return sp.stateCh
}

// ProcessMessage accepts a raw JSON message, processes it, and updates the replica.
func (sp *StreamProcessor) ProcessMessage(rawData json.RawMessage) error {
	processingStart := time.Now()
	var event SubscriptionEvent

	if err := json.Unmarshal(rawData, &event); err != nil {
		return fmt.Errorf("failed to unmarshal subscription event: %w", err)
	}

	switch event.Type {
	case "full":
		return sp.handleFullView(event, processingStart)
	case "diff":
		return sp.handleDiff(event, processingStart)
	default:
		return fmt.Errorf("received unknown event type: %s", event.Type)
	}
}

func (sp *StreamProcessor) handleFullView(event SubscriptionEvent, start time.Time) error {
	var payload clientFullPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal full view payload: %w", err)
	}
	if payload.Schema != poolfactory.Schema {
		return fmt.Errorf("%w: %q", ErrUnknownSchema, payload.Schema)
	}

	sp.publish(&payload.View, time.Since(start), event.SentAt, "full")
	return nil
}

func (sp *StreamProcessor) handleDiff(event SubscriptionEvent, start time.Time) error {
	var payload clientDiffPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal diff payload: %w", err)
	}
	if payload.Schema != poolfactory.Schema {
		return fmt.Errorf("%w: %q", ErrUnknownSchema, payload.Schema)
	}
	diff := payload.Diff

	if sp.lastView == nil {
		return fmt.Errorf("received diff before full view; from_sequence: %d, to_sequence: %d", diff.FromSequence, diff.ToSequence)
	}

	if diff.FromSequence != sp.lastView.Sequence {
		sp.logger.Warn(
			"Received out-of-order diff; replica may be out of sync. Discarding.",
			"last_known_sequence", sp.lastView.Sequence,
			"diff_from_sequence", diff.FromSequence,
			"diff_to_sequence", diff.ToSequence,
		)
		return nil // Non-fatal, just ignored
	}

	next, err := sp.patcher(*sp.lastView, diff)
	if err != nil {
		return fmt.Errorf("failed to patch view: %w", err)
	}

	sp.publish(&next, time.Since(start), event.SentAt, "diff")
	return nil
}

func (sp *StreamProcessor) publish(view *poolfactory.View, processingDur time.Duration, sentAt int64, eventType string) {
	sp.lastView = view
	indexed := sp.indexer.Index(*view)

	transportTime := time.Now().Add(-processingDur).Sub(time.Unix(0, sentAt))
	sp.logger.Debug("Registry Processed",
		"sequence", view.Sequence,
		"type", eventType,
		"pools", indexed.PoolCount(),
		"latency_transport_ms", transportTime.Milliseconds(),
		"latency_proc_ms", processingDur.Milliseconds(),
	)

	sp.stateCh <- indexed
}

// -----------------------------------------------------------------------------
// Client (Networking Wrapper)
// -----------------------------------------------------------------------------

// Client manages the connection and uses StreamProcessor for logic.
type Client struct {
	processor *StreamProcessor
	dial      DialFunc
	errCh     chan error
	logger    Logger
}

// NewClient creates a new client with networking enabled.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dial := cfg.Dial
	if dial == nil {
		dial = rpc.DialContext
	}

	client := &Client{
		processor: NewStreamProcessor(cfg.Logger, cfg.BufferSize, cfg.Patcher),
		dial:      dial,
		errCh:     make(chan error, 1),
		logger:    cfg.Logger,
	}

	go client.run(ctx, cfg.URL)
	return client, nil
}

// State delegates to the processor's state channel.
func (c *Client) State() <-chan indexer.IndexedPoolFactory {
	return c.processor.State()
}

// Err returns a read-only channel that receives the fatal error that stopped the client, such
// as a server speaking another schema. It is closed when the client stops; a context
// cancellation closes it without sending.
func (c *Client) Err() <-chan error {
	return c.errCh
}

// run handles the networking lifecycle and feeds data to the processor.
func (c *Client) run(ctx context.Context, url string) {
	defer close(c.errCh)
	if err := c.connectLoop(ctx, url); err != nil {
		c.logger.Error("Client stopped", "error", err)
		c.errCh <- err
	}
}

// connectLoop reconnects until ctx ends or a fatal error occurs.
func (c *Client) connectLoop(ctx context.Context, url string) error {
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			c.logger.Info("Client context canceled, shutting down.")
			return nil
		}

		c.logger.Info("Attempting to connect to RPC server", "url", url)
		rpcClient, err := c.dial(ctx, url)
		if err != nil {
			c.logger.Error("Failed to connect to RPC server, will retry...", "error", err, "delay", reconnectDelay)
			if !sleep(ctx, reconnectDelay) {
				return nil
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("Successfully connected to RPC server.")
		reconnectDelay = initialReconnectDelay

		err = c.subscribeAndProcess(ctx, rpcClient)
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			c.logger.Info("Context canceled, shutting down.")
			return nil
		case errors.Is(err, ErrUnknownSchema):
			return err
		default:
			c.logger.Error("Subscription failed, will reconnect...", "error", err, "delay", reconnectDelay)
			if !sleep(ctx, reconnectDelay) {
				return nil
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
		}
	}
}

func (c *Client) subscribeAndProcess(ctx context.Context, rpcClient *rpc.Client) error {
	defer rpcClient.Close()

	rawCh := make(chan json.RawMessage)
	sub, err := rpcClient.Subscribe(ctx, RpcNamespace, rawCh, RegistryStreamSubscriptionMethod)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	c.logger.Info("Successfully subscribed. Waiting for data...")
	for {
		select {
		case rawData := <-rawCh:
			if err := c.processor.ProcessMessage(rawData); err != nil {
				if errors.Is(err, ErrUnknownSchema) {
					return err
				}
				c.logger.Error("Error processing message", "error", err)
			}
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping subscription.")
			return ctx.Err()
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
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
