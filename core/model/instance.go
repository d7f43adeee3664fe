package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrArity     = errors.New("inconsistent attribute count")
	ErrNotFinite = errors.New("non-finite attribute")
	ErrWindow    = errors.New("time window ends before it starts")
	ErrVehicle   = errors.New("invalid vehicle parameters")
)

// Formulation selects the MILP that is compiled for an instance.
type Formulation int

const (
	EVRPTW Formulation = iota
	VRPTW
)

func (f Formulation) String() string {
	if f == VRPTW {
		return "vrptw"
	}
	return "evrptw"
}

// ParseFormulation maps "evrptw" or "vrptw" (any case) to a Formulation.
func ParseFormulation(s string) (Formulation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "evrptw":
		return EVRPTW, nil
	case "vrptw":
		return VRPTW, nil
	}
	return EVRPTW, fmt.Errorf("unknown formulation %q", s)
}

// Instance is a parsed problem instance.
type Instance struct {
	Name     string
	Depots   []Node
	Stations []Node
	Clients  []Node
	Vehicle  Vehicle
}

// NewInstance builds an Instance from raw six-value node tuples and the
// five-value vehicle tuple.
func NewInstance(name string, depots, stations, clients [][]float64, vehicle []float64) (*Instance, error) {
	inst := &Instance{Name: name}
	var err error
	if inst.Depots, err = nodes(depots); err != nil {
		return nil, fmt.Errorf("depot: %w", err)
	}
	if inst.Stations, err = nodes(stations); err != nil {
		return nil, fmt.Errorf("recharge station: %w", err)
	}
	if inst.Clients, err = nodes(clients); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	if inst.Vehicle, err = VehicleFromTuple(vehicle); err != nil {
		return nil, err
	}
	return inst, nil
}

func nodes(rows [][]float64) ([]Node, error) {
	out := make([]Node, 0, len(rows))
	for i, r := range rows {
		n, err := NodeFromTuple(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}
