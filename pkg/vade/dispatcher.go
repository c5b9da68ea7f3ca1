package vade

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// invocation runs one operation against one plugin. Adapters built by the
// facade close over the request arguments and translate a missing
// capability into NotApplicable, so every policy sees a uniform sequence of
// per-plugin results.
type invocation func(ctx context.Context, p Plugin) (Result, error)

// dispatcher runs one invocation against every registered plugin in
// registration order and reduces the per-plugin results with the policy
// bound to the operation's category. The policies share the registry
// snapshot and differ only in the reducer.
type dispatcher struct {
	registry *Registry
	log      *logrus.Logger
}

func (d *dispatcher) logEnter(op, subject string, count int) {
	d.log.WithFields(logrus.Fields{
		"op":      op,
		"subject": subject,
		"plugins": count,
	}).Debug("delegating operation to plugins")
}

func (d *dispatcher) logLeave(op, subject string, handled int) {
	d.log.WithFields(logrus.Fields{
		"op":      op,
		"subject": subject,
		"handled": handled,
	}).Debug("operation dispatch finished")
}

// failFast implements the Write policy: every plugin that does not decline
// must succeed, and the first plugin error aborts the dispatch before later
// plugins are consulted. An empty or fully declining plugin set succeeds
// vacuously.
func (d *dispatcher) failFast(ctx context.Context, op, subject string, invoke invocation) error {
	plugins := d.registry.snapshot()
	d.logEnter(op, subject, len(plugins))

	handled := 0
	for i, p := range plugins {
		res, err := invoke(ctx, p)
		if err != nil {
			return &PluginError{Index: i, Plugin: p.Name(), Err: err}
		}
		if res.Applicable() {
			handled++
		}
	}
	d.logLeave(op, subject, handled)
	return nil
}

// firstSuccess implements the Read policy: plugins are tried strictly in
// registration order and the first applicable result wins without
// consulting later plugins. Declines and plugin errors both mean "try the
// next plugin". If every plugin is exhausted the dispatch fails with an
// AggregateError carrying one outcome per plugin.
func (d *dispatcher) firstSuccess(ctx context.Context, op, subject string, invoke invocation) (string, error) {
	plugins := d.registry.snapshot()
	d.logEnter(op, subject, len(plugins))

	outcomes := make([]Outcome, 0, len(plugins))
	for i, p := range plugins {
		res, err := invoke(ctx, p)
		if err != nil {
			outcomes = append(outcomes, Outcome{Index: i, Plugin: p.Name(), Err: err})
			continue
		}
		if res.Applicable() {
			d.logLeave(op, subject, 1)
			value, _ := res.Value()
			return value, nil
		}
		outcomes = append(outcomes, Outcome{Index: i, Plugin: p.Name()})
	}
	d.logLeave(op, subject, 0)
	return "", &AggregateError{Op: op, Outcomes: outcomes}
}

// anyValid implements the Validate policy: every plugin is consulted, with
// no short-circuit, and the dispatch succeeds if at least one plugin
// confirms validity. Declines do not count against validity.
func (d *dispatcher) anyValid(ctx context.Context, op, subject string, invoke invocation) error {
	plugins := d.registry.snapshot()
	d.logEnter(op, subject, len(plugins))

	results, errs := d.fanOut(ctx, plugins, invoke)

	valid := 0
	outcomes := make([]Outcome, 0, len(plugins))
	for i, p := range plugins {
		if errs[i] != nil {
			outcomes = append(outcomes, Outcome{Index: i, Plugin: p.Name(), Err: errs[i]})
			continue
		}
		if results[i].Applicable() {
			valid++
		}
		outcomes = append(outcomes, Outcome{Index: i, Plugin: p.Name()})
	}
	d.logLeave(op, subject, valid)
	if valid == 0 {
		return &AggregateError{Op: op, Outcomes: outcomes}
	}
	return nil
}

// collectAll implements the messaging and custom-function policy: every
// plugin is consulted, the dispatch waits for all of them, and every
// non-declined result is collected in registration order, tagged with the
// originating plugin's index. The dispatch fails only when nothing was
// handled or every handling plugin failed.
func (d *dispatcher) collectAll(ctx context.Context, op, subject string, invoke invocation) ([]Outcome, error) {
	plugins := d.registry.snapshot()
	d.logEnter(op, subject, len(plugins))

	results, errs := d.fanOut(ctx, plugins, invoke)

	failures := 0
	outcomes := make([]Outcome, 0, len(plugins))
	for i, p := range plugins {
		if errs[i] != nil {
			outcomes = append(outcomes, Outcome{Index: i, Plugin: p.Name(), Err: errs[i]})
			failures++
			continue
		}
		if !results[i].Applicable() {
			continue
		}
		value, hasValue := results[i].Value()
		outcomes = append(outcomes, Outcome{Index: i, Plugin: p.Name(), Value: value, HasValue: hasValue})
	}
	d.logLeave(op, subject, len(outcomes)-failures)
	if failures == len(outcomes) {
		// Either nothing handled the request or everything that did failed.
		return nil, &AggregateError{Op: op, Outcomes: outcomes}
	}
	return outcomes, nil
}

// fanOut invokes every plugin concurrently and waits for all of them.
// Results and errors are indexed by registration order, so reducers never
// depend on completion timing. The core imposes no timeout; cancellation is
// the caller's concern via ctx.
func (d *dispatcher) fanOut(ctx context.Context, plugins []Plugin, invoke invocation) ([]Result, []error) {
	results := make([]Result, len(plugins))
	errs := make([]error, len(plugins))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range plugins {
		i, p := i, p
		g.Go(func() error {
			results[i], errs[i] = invoke(gctx, p)
			return nil
		})
	}
	// Workers never return errors through the group; plugin failures are
	// data for the reducer.
	_ = g.Wait()
	return results, errs
}
