package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/evrptw/core/model"
)

var (
	ErrNoDepot       = errors.New("instance needs exactly one depot")
	ErrNoClients     = errors.New("instance has no clients")
	ErrStationCopies = errors.New("station copies must not be negative")
	ErrSpeed         = errors.New("speed must be positive")
)

// DefaultStationCopies is the number of independent visits allowed per
// recharge station.
const DefaultStationCopies = 2

// Options controls the expansion.
type Options struct {
	StationCopies int
	Speed         model.SpeedPolicy
}

// Arc is an ordered pair of distinct node indices.
type Arc struct {
	From, To int
}

// Partition holds the disjoint index sets of the graph.
type Partition struct {
	DepotStart int
	Stations   []int // F
	Clients    []int // V
	DepotEnd   int
}

// NodeTable is the flattened node arena, indexed 0..n+1.
type NodeTable struct {
	nodes   []model.Node
	roles   []model.Role
	station []int // physical station index, -1 otherwise
	copies  []int // pass number of a station copy, -1 otherwise
}

// Graph is the complete routing graph of one instance.
type Graph struct {
	Name    string
	Table   *NodeTable
	Part    Partition
	Vehicle model.Vehicle
	Speed   float64

	arcs []Arc
	dist map[Arc]float64
	time map[Arc]float64
}

// Build expands inst. Station copies are laid out as full passes over all
// stations: with stations s0,s1 and two copies the order is s0,s1,s0,s1.
func Build(inst *model.Instance, opts Options) (*Graph, error) {
	if inst == nil || len(inst.Depots) != 1 {
		return nil, ErrNoDepot
	}
	if len(inst.Clients) == 0 {
		return nil, fmt.Errorf("%s: %w", inst.Name, ErrNoClients)
	}
	if opts.StationCopies < 0 {
		return nil, fmt.Errorf("%w: %d", ErrStationCopies, opts.StationCopies)
	}
	speed := opts.Speed.Resolve(inst.Vehicle)
	if !(speed > 0) || math.IsInf(speed, 0) {
		return nil, fmt.Errorf("%w: %v", ErrSpeed, speed)
	}
	if err := inst.Vehicle.Validate(); err != nil {
		return nil, err
	}

	nStations := len(inst.Stations) * opts.StationCopies
	size := 2 + nStations + len(inst.Clients)
	tab := &NodeTable{
		nodes:   make([]model.Node, 0, size),
		roles:   make([]model.Role, 0, size),
		station: make([]int, 0, size),
		copies:  make([]int, 0, size),
	}
	depot := inst.Depots[0]
	if err := depot.Validate(); err != nil {
		return nil, fmt.Errorf("depot: %w", err)
	}
	tab.add(depot, model.RoleDepot, -1, -1)
	for c := 0; c < opts.StationCopies; c++ {
		for s, st := range inst.Stations {
			if err := st.Validate(); err != nil {
				return nil, fmt.Errorf("station %d: %w", s, err)
			}
			tab.add(st, model.RoleStation, s, c)
		}
	}
	for i, cl := range inst.Clients {
		if err := cl.Validate(); err != nil {
			return nil, fmt.Errorf("client %d: %w", i, err)
		}
		tab.add(cl, model.RoleClient, -1, -1)
	}
	tab.add(depot, model.RoleDepot, -1, -1)

	g := &Graph{
		Name:    inst.Name,
		Table:   tab,
		Vehicle: inst.Vehicle,
		Speed:   speed,
		Part: Partition{
			DepotStart: 0,
			Stations:   seq(1, nStations),
			Clients:    seq(1+nStations, len(inst.Clients)),
			DepotEnd:   size - 1,
		},
	}
	g.buildArcs()
	return g, nil
}

func (t *NodeTable) add(n model.Node, r model.Role, station, pass int) {
	t.nodes = append(t.nodes, n)
	t.roles = append(t.roles, r)
	t.station = append(t.station, station)
	t.copies = append(t.copies, pass)
}

func seq(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

func (g *Graph) buildArcs() {
	n := g.Table.Len()
	g.arcs = make([]Arc, 0, n*(n-1))
	g.dist = make(map[Arc]float64, n*(n-1))
	g.time = make(map[Arc]float64, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			a := Arc{From: i, To: j}
			d := g.Table.nodes[i].Distance(g.Table.nodes[j])
			g.arcs = append(g.arcs, a)
			g.dist[a] = d
			g.time[a] = d / g.Speed
		}
	}
}

// Arcs returns every ordered pair (i, j) with i != j, source-major.
func (g *Graph) Arcs() []Arc { return g.arcs }

// Distance returns the Euclidean length of arc (i, j). The second value is
// false for self arcs and out-of-range indices.
func (g *Graph) Distance(i, j int) (float64, bool) {
	d, ok := g.dist[Arc{From: i, To: j}]
	return d, ok
}

// TravelTime returns distance / speed for arc (i, j).
func (g *Graph) TravelTime(i, j int) (float64, bool) {
	t, ok := g.time[Arc{From: i, To: j}]
	return t, ok
}

// Len is the number of graph nodes, n+2.
func (t *NodeTable) Len() int { return len(t.nodes) }

// Node returns the attributes of node i.
func (t *NodeTable) Node(i int) model.Node { return t.nodes[i] }

// Role returns the role of node i.
func (t *NodeTable) Role(i int) model.Role { return t.roles[i] }

// IsDepotStart reports whether i is the depot start copy.
func (t *NodeTable) IsDepotStart(i int) bool { return i == 0 }

// IsDepotEnd reports whether i is the depot end copy.
func (t *NodeTable) IsDepotEnd(i int) bool { return i == len(t.nodes)-1 }

// IsStation reports whether i is a recharge station copy.
func (t *NodeTable) IsStation(i int) bool { return t.roles[i] == model.RoleStation }

// IsClient reports whether i is a client.
func (t *NodeTable) IsClient(i int) bool { return t.roles[i] == model.RoleClient }

// Station returns the physical station behind copy i, or -1.
func (t *NodeTable) Station(i int) int { return t.station[i] }

// Copy returns the pass number of station copy i, or -1.
func (t *NodeTable) Copy(i int) int { return t.copies[i] }

// Roles returns the role of every node in index order.
func (t *NodeTable) Roles() []model.Role {
	out := make([]model.Role, len(t.roles))
	copy(out, t.roles)
	return out
}

// StartAndStations is F ∪ {0}.
func (p Partition) StartAndStations() []int {
	return append([]int{p.DepotStart}, p.Stations...)
}

// StartAndClients is {0} ∪ V.
func (p Partition) StartAndClients() []int {
	return append([]int{p.DepotStart}, p.Clients...)
}

// Visits is F ∪ V.
func (p Partition) Visits() []int {
	out := make([]int, 0, len(p.Stations)+len(p.Clients))
	out = append(out, p.Stations...)
	return append(out, p.Clients...)
}

// Sources is {0} ∪ F ∪ V.
func (p Partition) Sources() []int {
	return append([]int{p.DepotStart}, p.Visits()...)
}

// Sinks is F ∪ V ∪ {n+1}.
func (p Partition) Sinks() []int {
	return append(p.Visits(), p.DepotEnd)
}

// All is {0} ∪ F ∪ V ∪ {n+1}.
func (p Partition) All() []int {
	return append(p.Sources(), p.DepotEnd)
}
