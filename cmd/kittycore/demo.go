package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kittycore/internal/core"
	"kittycore/internal/core/metrics"
	"kittycore/internal/events"
	"kittycore/internal/events/amqp"
	"kittycore/internal/host"
	"kittycore/internal/ledger"
	"kittycore/pkg/domain"
)

const (
	seller core.AccountID = "alice"
	buyer  core.AccountID = "bob"
)

// demoStep is one scripted transition. want is nil for steps that must commit.
type demoStep struct {
	name string
	want error
	run  func(ctx context.Context, svc *core.Service, id core.KittyID) (core.Kitty, error)
}

var demoSteps = []demoStep{
	{name: "list", run: func(ctx context.Context, svc *core.Service, id core.KittyID) (core.Kitty, error) {
		k, _, err := svc.SetPrice(ctx, seller, id, domain.NewPrice(100))
		return k, err
	}},
	{name: "transfer to self", want: domain.ErrTransferToSelf, run: func(ctx context.Context, svc *core.Service, id core.KittyID) (core.Kitty, error) {
		k, _, err := svc.Transfer(ctx, seller, seller, id)
		return k, err
	}},
	{name: "underbid", want: domain.ErrPriceTooLow, run: func(ctx context.Context, svc *core.Service, id core.KittyID) (core.Kitty, error) {
		k, _, err := svc.BuyKitty(ctx, buyer, id, 50)
		return k, err
	}},
	{name: "buy", run: func(ctx context.Context, svc *core.Service, id core.KittyID) (core.Kitty, error) {
		k, _, err := svc.BuyKitty(ctx, buyer, id, 150)
		return k, err
	}},
}

// demo mints a kitty for the seller, lists it, exercises two rejected
// transitions and sells it to the buyer. Committed events are written to
// stdout as JSON envelopes.
func (a *app) demo(ctx context.Context, args []string) error {
	fs := a.flags("demo")
	trace := fs.Bool("trace", false, "write JSON trace spans to stderr")
	if err := parse(fs, args); err != nil {
		return err
	}

	store, release, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	led := ledger.New(a.cfg.Deposit())
	if err := led.Deposit(buyer, 1_000+a.cfg.Deposit()); err != nil {
		return err
	}

	sinks := events.Fanout{events.SinkFunc(func(_ context.Context, e domain.Event) {
		if err := a.writeJSON(events.NewEnvelope(e, time.Now())); err != nil {
			a.log.Warn("write event", "error", err)
		}
	})}
	if a.cfg.AMQP.URL != "" {
		pub, err := amqp.Dial(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange, a.cfg.AMQP.RoutingKey, amqp.WithLogger(a.log))
		if err != nil {
			return fmt.Errorf("event relay: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				a.log.Warn("close event relay", "error", err)
			}
		}()
		sinks = append(sinks, pub)
	}

	reg := prometheus.NewRegistry()
	opts := []core.ServiceOption{
		core.WithLogger(a.log),
		core.WithEventSink(sinks),
		core.WithMetricsRecorder(metrics.New(reg)),
	}
	if *trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.stderr)))
	}
	chain := host.NewChain([32]byte{})
	svc := core.NewService(store, chain, led, opts...)

	kitty, _, err := svc.CreateKitty(ctx, seller)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	for _, step := range demoSteps {
		chain.NextExtrinsic()
		_, err := step.run(ctx, svc, kitty.ID)
		switch {
		case step.want == nil && err != nil:
			return fmt.Errorf("%s: %w", step.name, err)
		case step.want != nil && !errors.Is(err, step.want):
			return fmt.Errorf("%s: expected %v, got %v", step.name, step.want, err)
		case step.want != nil:
			a.log.Info("demo step rejected", "step", step.name, "code", domain.ErrorCode(err))
		}
	}
	chain.Seal()

	a.log.Info("demo complete",
		"kitty_id", kitty.ID.String(),
		"seller_balance", led.Total(seller),
		"buyer_balance", led.Total(buyer),
		"buyer_owns", len(svc.OwnedBy(buyer)),
	)
	return a.logMetrics(reg)
}

func (a *app) logMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			encoded, _ := json.Marshal(labels)
			switch {
			case m.GetCounter() != nil:
				a.log.Debug("metric", "name", family.GetName(), "labels", string(encoded), "value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				a.log.Debug("metric", "name", family.GetName(), "labels", string(encoded), "count", m.GetHistogram().GetSampleCount())
			}
		}
	}
	return nil
}
