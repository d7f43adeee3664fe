package model

import (
	"fmt"
	"math"
)

// Role identifies what a node stands for in the routing graph.
type Role int

const (
	RoleDepot Role = iota
	RoleStation
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleDepot:
		return "depot"
	case RoleStation:
		return "station"
	case RoleClient:
		return "client"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// TupleSize is the number of attributes of a node entry:
// x, y, demand, window start, window end, service time.
const TupleSize = 6

// Node is a point of the instance. Depots and stations carry a zero demand.
type Node struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Demand      float64 `json:"demand"`
	ReadyTime   float64 `json:"ready_time"`
	DueTime     float64 `json:"due_time"`
	ServiceTime float64 `json:"service_time"`
}

// NodeFromTuple builds a Node from the six-value layout used by instance files.
func NodeFromTuple(t []float64) (Node, error) {
	if len(t) != TupleSize {
		return Node{}, fmt.Errorf("%w: got %d values, want %d", ErrArity, len(t), TupleSize)
	}
	n := Node{X: t[0], Y: t[1], Demand: t[2], ReadyTime: t[3], DueTime: t[4], ServiceTime: t[5]}
	return n, n.Validate()
}

// Tuple returns the node in the six-value layout.
func (n Node) Tuple() []float64 {
	return []float64{n.X, n.Y, n.Demand, n.ReadyTime, n.DueTime, n.ServiceTime}
}

// Validate rejects non-finite attributes and inverted time windows.
func (n Node) Validate() error {
	for _, v := range n.Tuple() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v", ErrNotFinite, n.Tuple())
		}
	}
	if n.DueTime < n.ReadyTime {
		return fmt.Errorf("%w: [%v, %v]", ErrWindow, n.ReadyTime, n.DueTime)
	}
	return nil
}

// Distance returns the Euclidean distance between two nodes.
func (n Node) Distance(o Node) float64 {
	return math.Hypot(n.X-o.X, n.Y-o.Y)
}
