package formulation

import (
	"fmt"
	"math"

	"github.com/kilianp07/evrptw/core/graph"
)

// BigM holds the relaxation constant of each conditional family.
type BigM struct {
	// Time relaxes travel-time propagation from the depot start and clients.
	// It is the end of the depot window.
	Time float64
	// RechargeTime relaxes time propagation out of a station, where a full
	// recharge g·Q may be added to the arrival time.
	RechargeTime float64
	// Load relaxes load propagation and equals the load capacity C.
	Load float64
	// Battery relaxes battery propagation out of clients and equals Q.
	Battery float64
}

// NewBigM derives the constants for g.
func NewBigM(g *graph.Graph) BigM {
	l0 := g.Table.Node(g.Part.DepotStart).DueTime
	v := g.Vehicle
	return BigM{
		Time:         l0,
		RechargeTime: l0 + v.RechargeRate*v.BatteryCapacity,
		Load:         v.LoadCapacity,
		Battery:      v.BatteryCapacity,
	}
}

// dominanceTol absorbs rounding in the triangle inequality of travel times.
const dominanceTol = 1e-9

// Dominates reports an error when a constant is too small to keep its
// family slack for an unused arc under every state the rest of the model
// allows. With an unused arc the rows reduce to
//
//	tau[i] - Time <= tau[j]
//	tau[i] + g(Q - b[i]) - RechargeTime <= tau[j]
//	u[j] <= u[i] + Load
//	b[j] <= b[i] + Battery
//
// and u and b are bounded by C and Q. A source on a route must still reach
// the depot end by its due time, so tau[i] is bounded by the smaller of its
// own window end and the latest departure that still reaches the depot end.
// A station copy off every route can rest at its window start with a full
// battery.
func (m BigM) Dominates(g *graph.Graph) error {
	p := g.Part
	minStart := g.Table.Node(p.DepotEnd).ReadyTime
	for _, j := range p.Sinks() {
		if e := g.Table.Node(j).ReadyTime; e < minStart {
			minStart = e
		}
	}
	if minStart < 0 {
		minStart = 0
	}
	endDue := g.Table.Node(p.DepotEnd).DueTime
	// latest is the largest tau[i] + extra over every solution where i
	// leaves towards the depot end after extra time units.
	latest := func(i int, extra float64) float64 {
		back, _ := g.TravelTime(i, p.DepotEnd)
		return math.Min(g.Table.Node(i).DueTime+extra, endDue-back)
	}

	for _, i := range p.StartAndClients() {
		s := g.Table.Node(i).ServiceTime
		if need := latest(i, s) - s - minStart; need > m.Time+dominanceTol {
			return fmt.Errorf("time big-M %v below %v required by node %d", m.Time, need, i)
		}
	}
	v := g.Vehicle
	for _, i := range p.Stations {
		onRoute := latest(i, v.RechargeRate*v.BatteryCapacity)
		if need := math.Max(onRoute, g.Table.Node(i).ReadyTime) - minStart; need > m.RechargeTime+dominanceTol {
			return fmt.Errorf("recharge time big-M %v below %v required by station copy %d", m.RechargeTime, need, i)
		}
	}
	if m.Load < v.LoadCapacity {
		return fmt.Errorf("load big-M %v below capacity %v", m.Load, v.LoadCapacity)
	}
	if m.Battery < v.BatteryCapacity {
		return fmt.Errorf("battery big-M %v below capacity %v", m.Battery, v.BatteryCapacity)
	}
	return nil
}
