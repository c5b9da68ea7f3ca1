package vade

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Vade is the single point of contact for interacting with DIDs and VCs.
// It owns an ordered plugin registry and dispatches every operation to the
// registered plugins, combining their results per the operation's
// aggregation policy.
//
// Registration is expected to complete before dispatch begins; the registry
// itself is safe for concurrent use either way. Instances are independent;
// there is no process-wide state.
type Vade struct {
	registry *Registry
	dispatch *dispatcher
	log      *logrus.Logger
}

// New creates a Vade instance with an empty registry. A nil logger falls
// back to a default logrus logger.
func New(log *logrus.Logger) *Vade {
	if log == nil {
		log = logrus.New()
	}
	registry := NewRegistry()
	return &Vade{
		registry: registry,
		dispatch: &dispatcher{registry: registry, log: log},
		log:      log,
	}
}

// RegisterPlugin appends plugin to the registry. Registration order is
// dispatch order. It never fails.
func (v *Vade) RegisterPlugin(plugin Plugin) {
	if plugin == nil {
		return
	}
	v.log.WithField("plugin", plugin.Name()).Debug("registering plugin")
	v.registry.Register(plugin)
}

// PluginCount returns the number of registered plugins.
func (v *Vade) PluginCount() int {
	return v.registry.Len()
}

// WriteDocument creates or updates the document stored under kind and key.
// Every plugin that participates must succeed; the first plugin failure
// aborts the call and is returned as a *PluginError. A write against which
// no plugin has an opinion succeeds vacuously.
func (v *Vade) WriteDocument(ctx context.Context, kind Kind, key, payload string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if key == "" {
		return ErrMissingKey
	}
	if payload == "" {
		return ErrMissingPayload
	}
	return v.dispatch.failFast(ctx, "write_document", key, func(ctx context.Context, p Plugin) (Result, error) {
		w, ok := p.(DocumentWriter)
		if !ok {
			return NotApplicable(), nil
		}
		return w.WriteDocument(ctx, kind, key, payload)
	})
}

// ReadDocument resolves the document stored under kind and key. Plugins are
// tried in registration order and the first success wins. If no plugin
// produces a result the call fails with an *AggregateError describing every
// plugin's outcome.
func (v *Vade) ReadDocument(ctx context.Context, kind Kind, key string) (string, error) {
	if err := checkKind(kind); err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrMissingKey
	}
	return v.dispatch.firstSuccess(ctx, "read_document", key, func(ctx context.Context, p Plugin) (Result, error) {
		r, ok := p.(DocumentReader)
		if !ok {
			return NotApplicable(), nil
		}
		return r.ReadDocument(ctx, kind, key)
	})
}

// CheckDocument validates payload as the document for kind and key. Every
// plugin is consulted; the document is valid if at least one plugin
// confirms it. Plugins that are not responsible decline without counting
// against validity.
func (v *Vade) CheckDocument(ctx context.Context, kind Kind, key, payload string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if key == "" {
		return ErrMissingKey
	}
	if payload == "" {
		return ErrMissingPayload
	}
	return v.dispatch.anyValid(ctx, "check_document", key, func(ctx context.Context, p Plugin) (Result, error) {
		c, ok := p.(DocumentValidator)
		if !ok {
			return NotApplicable(), nil
		}
		return c.CheckDocument(ctx, kind, key, payload)
	})
}

// SendMessage hands an outgoing protocol message to every plugin that
// processes messages and returns their outcomes in registration order.
// Multiple plugins may legitimately contribute complementary results, e.g.
// one validating while another forwards; the sequence is therefore not
// collapsed to a single value.
func (v *Vade) SendMessage(ctx context.Context, message string) ([]Outcome, error) {
	if message == "" {
		return nil, ErrMissingMessage
	}
	return v.dispatch.collectAll(ctx, "send_message", "message", func(ctx context.Context, p Plugin) (Result, error) {
		s, ok := p.(MessageSender)
		if !ok {
			return NotApplicable(), nil
		}
		return s.SendMessage(ctx, message)
	})
}

// ReceiveMessage hands an incoming protocol message to every plugin that
// processes messages and returns their outcomes in registration order.
func (v *Vade) ReceiveMessage(ctx context.Context, message string) ([]Outcome, error) {
	if message == "" {
		return nil, ErrMissingMessage
	}
	return v.dispatch.collectAll(ctx, "receive_message", "message", func(ctx context.Context, p Plugin) (Result, error) {
		r, ok := p.(MessageReceiver)
		if !ok {
			return NotApplicable(), nil
		}
		return r.ReceiveMessage(ctx, message)
	})
}

// ProposeProof hands a proof-proposal request to every plugin that handles
// proofs and returns their outcomes in registration order.
func (v *Vade) ProposeProof(ctx context.Context, request string) ([]Outcome, error) {
	if request == "" {
		return nil, ErrMissingMessage
	}
	return v.dispatch.collectAll(ctx, "propose_proof", "request", func(ctx context.Context, p Plugin) (Result, error) {
		pp, ok := p.(ProofProposer)
		if !ok {
			return NotApplicable(), nil
		}
		return pp.ProposeProof(ctx, request)
	})
}

// RunCustomFunction invokes the named function on every plugin that
// recognizes it and returns their outcomes in registration order. Arguments
// are opaque to the core.
func (v *Vade) RunCustomFunction(ctx context.Context, name string, args ...string) ([]Outcome, error) {
	if name == "" {
		return nil, ErrMissingFunction
	}
	return v.dispatch.collectAll(ctx, "run_custom_function", name, func(ctx context.Context, p Plugin) (Result, error) {
		f, ok := p.(FunctionRunner)
		if !ok {
			return NotApplicable(), nil
		}
		return f.RunFunction(ctx, name, args)
	})
}

func checkKind(kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return nil
}
