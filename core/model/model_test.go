package model

import (
	"errors"
	"math"
	"testing"
)

func TestNodeFromTupleArity(t *testing.T) {
	if _, err := NodeFromTuple([]float64{1, 2, 3}); !errors.Is(err, ErrArity) {
		t.Fatalf("expected ErrArity got %v", err)
	}
	n, err := NodeFromTuple([]float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.X != 1 || n.Y != 2 || n.Demand != 3 || n.ReadyTime != 4 || n.DueTime != 5 || n.ServiceTime != 6 {
		t.Fatalf("unexpected node %+v", n)
	}
}

func TestNodeValidate(t *testing.T) {
	if _, err := NodeFromTuple([]float64{math.NaN(), 0, 0, 0, 1, 0}); !errors.Is(err, ErrNotFinite) {
		t.Fatalf("expected ErrNotFinite got %v", err)
	}
	if _, err := NodeFromTuple([]float64{0, 0, 0, 10, 1, 0}); !errors.Is(err, ErrWindow) {
		t.Fatalf("expected ErrWindow got %v", err)
	}
}

func TestNewInstance(t *testing.T) {
	inst, err := NewInstance("i1",
		[][]float64{{0, 0, 0, 0, 100, 0}},
		nil,
		[][]float64{{3, 4, 5, 0, 100, 1}},
		[]float64{50, 10, 1, 0.5, 1})
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	if inst.Vehicle.LoadCapacity != 10 || inst.Vehicle.Speed != 1 {
		t.Fatalf("unexpected vehicle %+v", inst.Vehicle)
	}
	if _, err := NewInstance("bad", nil, nil, [][]float64{{1, 2}}, []float64{1, 1, 1, 1, 1}); !errors.Is(err, ErrArity) {
		t.Fatalf("expected arity error got %v", err)
	}
	if _, err := NewInstance("bad", nil, nil, nil, []float64{1, 1}); !errors.Is(err, ErrArity) {
		t.Fatalf("expected vehicle arity error got %v", err)
	}
}

func TestSpeedPolicy(t *testing.T) {
	v := Vehicle{Speed: 1}
	if got := DefaultSpeedPolicy(EVRPTW).Resolve(v); got != 1 {
		t.Fatalf("evrptw speed %v", got)
	}
	if got := DefaultSpeedPolicy(VRPTW).Resolve(v); got != UrbanSpeed {
		t.Fatalf("vrptw speed %v", got)
	}
	if got := (SpeedPolicy{Override: 40}).Resolve(v); got != 40 {
		t.Fatalf("override speed %v", got)
	}
}

func TestParseFormulation(t *testing.T) {
	for in, want := range map[string]Formulation{"": EVRPTW, "EVRPTW": EVRPTW, "vrptw": VRPTW} {
		got, err := ParseFormulation(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormulation("cvrp"); err == nil {
		t.Fatal("expected error")
	}
}
