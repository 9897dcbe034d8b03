package keel_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/danpasecinic/keel"
)

func TestPrintGraphEmpty(t *testing.T) {
	t.Parallel()

	k := newKernel(t)

	var buf bytes.Buffer
	k.FprintGraph(&buf)

	if !strings.Contains(buf.String(), "empty kernel") {
		t.Errorf("expected empty kernel message, got: %s", buf.String())
	}
}

func TestPrintGraph(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	registerCar(t, k, &journal{})

	output := k.SprintGraph()
	if !strings.Contains(output, "○ engine [transient]") {
		t.Errorf("expected engine line, got: %s", output)
	}
	if !strings.Contains(output, "○ car [transient] ← engine") {
		t.Errorf("expected car to depend on engine, got: %s", output)
	}
}

func TestPrintGraphStates(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	keel.MustProvideValue(k, "logger", &Logger{log: &journal{}})
	keel.MustProvide(
		k, "car", func(_ context.Context, a *keel.Activation) (*Car, error) {
			return &Car{}, nil
		}, keel.WithConstructor(keel.DepOf[*Engine]("engine")),
	)

	if _, err := k.Resolve(context.Background(), "logger"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	output := k.SprintGraph()
	if !strings.Contains(output, "● logger [external]") {
		t.Errorf("expected resolved logger to be marked live, got: %s", output)
	}
	if !strings.Contains(output, "✗ car [singleton] ← "+keel.ServiceOf[*Engine]().String()+"?") {
		t.Errorf("expected waiting car with a missing dependency, got: %s", output)
	}
}

func TestGraphInfo(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	registerCar(t, k, &journal{})

	info := k.Graph()
	if len(info.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(info.Components))
	}
	if len(info.Missing) != 0 {
		t.Errorf("expected nothing missing, got %v", info.Missing)
	}

	engine, car := info.Components[0], info.Components[1]
	if len(engine.Dependents) != 1 || engine.Dependents[0] != "car" {
		t.Errorf("expected car to depend on engine, got %v", engine.Dependents)
	}
	if len(car.Dependencies) != 1 || car.Dependencies[0].Slot != "engine" || car.Dependencies[0].Target != "engine" {
		t.Errorf("unexpected car dependencies: %+v", car.Dependencies)
	}
}

func TestPrintGraphDOT(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	registerCar(t, k, &journal{})

	output := k.SprintGraphDOT()
	for _, want := range []string{
		"digraph dependencies {",
		`"engine" [label="engine"];`,
		`"car" -> "engine" [label="engine"];`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	registerCar(t, k, &journal{})

	handlers := k.Handlers()
	if len(handlers) != 2 || handlers[0].Name != "engine" || handlers[1].Name != "car" {
		t.Fatalf("unexpected handlers: %+v", handlers)
	}
	if handlers[1].Lifestyle != "transient" || handlers[1].State != keel.Valid {
		t.Errorf("unexpected car handler: %+v", handlers[1])
	}

	if _, err := k.GetHandler("missing"); !keel.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
