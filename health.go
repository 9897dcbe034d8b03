package keel

import (
	"context"
	"sync"
	"time"

	"github.com/danpasecinic/keel/internal/errdefs"
)

type HealthStatus string

const (
	HealthStatusUp      HealthStatus = "up"
	HealthStatusDown    HealthStatus = "down"
	HealthStatusUnknown HealthStatus = "unknown"
)

type HealthReport struct {
	Name    string
	Status  HealthStatus
	Error   error
	Latency time.Duration
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type ReadinessChecker interface {
	ReadinessCheck(ctx context.Context) error
}

// Live fails with the first HealthChecker among the instances callers still
// hold that reports an error.
func (k *Kernel) Live(ctx context.Context) error {
	return firstDown(k.Health(ctx))
}

func (k *Kernel) Ready(ctx context.Context) error {
	return firstDown(k.check(ctx, readinessCheck))
}

// Health checks every held instance implementing HealthChecker concurrently.
// Reports follow resolution order.
func (k *Kernel) Health(ctx context.Context) []HealthReport {
	return k.check(ctx, healthCheck)
}

func healthCheck(instance any) (func(context.Context) error, bool) {
	hc, ok := instance.(HealthChecker)
	if !ok {
		return nil, false
	}
	return hc.HealthCheck, true
}

func readinessCheck(instance any) (func(context.Context) error, bool) {
	rc, ok := instance.(ReadinessChecker)
	if !ok {
		return nil, false
	}
	return rc.ReadinessCheck, true
}

func (k *Kernel) check(ctx context.Context, checkOf func(any) (func(context.Context) error, bool)) []HealthReport {
	type target struct {
		name  string
		check func(context.Context) error
	}

	var targets []target
	for _, instance := range k.internal.Instances() {
		if check, ok := checkOf(instance.Value); ok {
			targets = append(targets, target{name: instance.Component, check: check})
		}
	}

	reports := make([]HealthReport, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t target) {
			defer wg.Done()

			start := time.Now()
			err := t.check(ctx)

			report := HealthReport{
				Name:    t.name,
				Status:  HealthStatusUp,
				Latency: time.Since(start),
			}
			if err != nil {
				report.Status = HealthStatusDown
				report.Error = err
			}
			reports[i] = report
		}(i, t)
	}

	wg.Wait()
	return reports
}

func firstDown(reports []HealthReport) error {
	for _, r := range reports {
		if r.Status == HealthStatusDown {
			return errdefs.HealthCheckFailed(r.Name, r.Error)
		}
	}
	return nil
}
