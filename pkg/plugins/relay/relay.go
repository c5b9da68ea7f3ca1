// Package relay provides a protocol-message plugin that forwards enveloped
// messages over a Redis channel and answers the envelope types it
// subscribes to. It declines messages it cannot parse or is not subscribed
// to, so other messaging plugins can process them instead.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/evannetwork/vade/pkg/vade"
)

// ProofProposalType is the envelope type used for proof proposals.
const ProofProposalType = "proof-proposal"

// Envelope is the message wire format the relay understands. Data stays
// opaque to the relay.
type Envelope struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Config holds Redis connection and subscription settings.
type Config struct {
	// URL is a redis:// connection URL.
	URL string
	// Channel is the pub/sub channel outgoing messages are published on.
	Channel string
	// MessageTypes restricts the relay to the given envelope types. Empty
	// means all types.
	MessageTypes []string
}

// Plugin relays protocol messages over Redis pub/sub.
type Plugin struct {
	client  *redis.Client
	channel string
	types   map[string]struct{}

	mu       sync.Mutex
	received map[string]uint64
}

// New connects to Redis and returns a relay plugin.
func New(config Config) (*Plugin, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, config.Channel, config.MessageTypes), nil
}

// NewWithClient wraps an existing Redis client, mainly for tests.
func NewWithClient(client *redis.Client, channel string, messageTypes []string) *Plugin {
	var types map[string]struct{}
	if len(messageTypes) > 0 {
		types = make(map[string]struct{}, len(messageTypes))
		for _, t := range messageTypes {
			types[t] = struct{}{}
		}
	}
	if channel == "" {
		channel = "vade:messages"
	}
	return &Plugin{
		client:   client,
		channel:  channel,
		types:    types,
		received: make(map[string]uint64),
	}
}

// Name implements vade.Plugin.
func (p *Plugin) Name() string {
	return "relay"
}

// Close releases the underlying Redis connection pool.
func (p *Plugin) Close() error {
	return p.client.Close()
}

// SendMessage publishes the enveloped message on the configured channel,
// assigning an envelope id if the sender did not. The published envelope is
// returned so the caller knows the assigned id.
func (p *Plugin) SendMessage(ctx context.Context, message string) (vade.Result, error) {
	env, ok := p.accept(message)
	if !ok {
		return vade.NotApplicable(), nil
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return vade.Result{}, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		return vade.Result{}, fmt.Errorf("failed to publish message: %w", err)
	}
	return vade.Success(string(data)), nil
}

// ReceiveMessage answers subscribed envelope types with a response carrying
// a per-type receive count and the original message.
func (p *Plugin) ReceiveMessage(ctx context.Context, message string) (vade.Result, error) {
	env, ok := p.accept(message)
	if !ok {
		return vade.NotApplicable(), nil
	}

	p.mu.Lock()
	p.received[env.Type]++
	count := p.received[env.Type]
	p.mu.Unlock()

	response := struct {
		Type string `json:"type"`
		Data struct {
			Count       uint64          `json:"count"`
			LastMessage json.RawMessage `json:"last_message"`
		} `json:"data"`
	}{Type: "response"}
	response.Data.Count = count
	response.Data.LastMessage = json.RawMessage(message)

	data, err := json.Marshal(response)
	if err != nil {
		return vade.Result{}, fmt.Errorf("failed to marshal response: %w", err)
	}
	return vade.Success(string(data)), nil
}

// ProposeProof wraps the request in a proof-proposal envelope and publishes
// it like an outgoing message.
func (p *Plugin) ProposeProof(ctx context.Context, request string) (vade.Result, error) {
	if !json.Valid([]byte(request)) {
		return vade.NotApplicable(), nil
	}
	if !p.subscribed(ProofProposalType) {
		return vade.NotApplicable(), nil
	}
	env := Envelope{
		ID:   uuid.NewString(),
		Type: ProofProposalType,
		Data: json.RawMessage(request),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return vade.Result{}, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		return vade.Result{}, fmt.Errorf("failed to publish proposal: %w", err)
	}
	return vade.Success(string(data)), nil
}

// accept parses the message and reports whether the relay handles it.
func (p *Plugin) accept(message string) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal([]byte(message), &env); err != nil {
		return Envelope{}, false
	}
	if env.Type == "" {
		return Envelope{}, false
	}
	if !p.subscribed(env.Type) {
		return Envelope{}, false
	}
	return env, true
}

func (p *Plugin) subscribed(messageType string) bool {
	if p.types == nil {
		return true
	}
	_, ok := p.types[messageType]
	return ok
}
