// Package decode turns a solver assignment back into route metrics.
package decode

import (
	"math"
	"strconv"

	"github.com/kilianp07/evrptw/core/formulation"
	"github.com/kilianp07/evrptw/core/graph"
	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/core/model"
)

// Route is one vehicle tour from the depot start to the depot end.
type Route struct {
	Nodes    []int        `json:"nodes"`
	Roles    []model.Role `json:"-"`
	Labels   []string     `json:"labels"`
	Coords   [][2]float64 `json:"coords"`
	Distance float64      `json:"distance"`
	Time     float64      `json:"time"`
	Closed   bool         `json:"closed"`
}

// Metrics are the values reported per solved instance. When the solution
// has no assignment every metric is zero and HasObjective is false.
type Metrics struct {
	Feasible       bool
	Objective      float64
	HasObjective   bool
	VehiclesUsed   int
	VehiclesBack   int
	TotalRouteTime float64
	Recharge       float64
	ActiveArcs     []graph.Arc
	Routes         []Route
}

// Decode reads the active arcs of s, from {0} ∪ F ∪ V into F ∪ V ∪ {n+1},
// and derives the metrics.
func Decode(c *formulation.Compiled, s *milp.Solution) Metrics {
	if !s.Feasible() {
		return Metrics{}
	}
	g := c.Graph
	p := g.Part
	m := Metrics{Feasible: true, Objective: s.Objective, HasObjective: s.HasObjective}

	for _, a := range g.Arcs() {
		// Arcs out of the depot end or into the depot start appear in no
		// row, so their binaries carry no routing meaning.
		if a.From == p.DepotEnd || a.To == p.DepotStart {
			continue
		}
		if !s.Active(c.X(a.From, a.To)) {
			continue
		}
		m.ActiveArcs = append(m.ActiveArcs, a)
		t, _ := g.TravelTime(a.From, a.To)
		m.TotalRouteTime += t
		if a.From == p.DepotStart && a.To != p.DepotEnd && a.To != p.DepotStart {
			m.VehiclesUsed++
		}
		if a.To == p.DepotEnd && a.From != p.DepotStart && a.From != p.DepotEnd {
			m.VehiclesBack++
		}
	}
	m.Routes = routes(g, m.ActiveArcs)
	if c.Formulation == model.EVRPTW {
		m.Recharge = recharge(c, s, m.ActiveArcs, m.Routes)
	}
	return m
}

func routes(g *graph.Graph, active []graph.Arc) []Route {
	p := g.Part
	next := make(map[int]int, len(active))
	var starts []int
	for _, a := range active {
		if a.From == p.DepotStart {
			if a.To != p.DepotEnd && a.To != p.DepotStart {
				starts = append(starts, a.To)
			}
			continue
		}
		if _, ok := next[a.From]; !ok {
			next[a.From] = a.To
		}
	}
	out := make([]Route, 0, len(starts))
	for _, first := range starts {
		r := Route{Nodes: []int{p.DepotStart}}
		seen := map[int]bool{p.DepotStart: true}
		prev, cur := p.DepotStart, first
		for {
			d, _ := g.Distance(prev, cur)
			t, _ := g.TravelTime(prev, cur)
			r.Distance += d
			r.Time += t
			r.Nodes = append(r.Nodes, cur)
			if cur == p.DepotEnd {
				r.Closed = true
				break
			}
			if seen[cur] {
				break
			}
			seen[cur] = true
			nxt, ok := next[cur]
			if !ok {
				break
			}
			prev, cur = cur, nxt
		}
		for i, n := range r.Nodes {
			role := g.Table.Role(n)
			r.Roles = append(r.Roles, role)
			r.Labels = append(r.Labels, label(g, n, i, role))
			node := g.Table.Node(n)
			r.Coords = append(r.Coords, [2]float64{node.X, node.Y})
		}
		out = append(out, r)
	}
	return out
}

func label(g *graph.Graph, n, pos int, role model.Role) string {
	switch role {
	case model.RoleDepot:
		if pos == 0 {
			return "D0"
		}
		return "D1"
	case model.RoleStation:
		return "S" + strconv.Itoa(g.Table.Station(n)) + "." + strconv.Itoa(g.Table.Copy(n))
	}
	return "C" + strconv.Itoa(n-len(g.Part.Stations)-1)
}

// recharge sums, over station copies entered by exactly one active arc,
// max(0, b_dest - (b_station - h*d)) along the arc leaving the station.
// Battery levels are propagated along the decoded routes: full at the depot
// start, reduced by h*d per arc, refilled to Q when leaving a station. A
// station outside every route falls back on the solver's battery values.
func recharge(c *formulation.Compiled, s *milp.Solution, active []graph.Arc, rs []Route) float64 {
	g := c.Graph
	h := g.Vehicle.ConsumptionRate
	q := g.Vehicle.BatteryCapacity

	level := make(map[int]float64)
	for _, r := range rs {
		depart := q
		for k := 1; k < len(r.Nodes); k++ {
			d, _ := g.Distance(r.Nodes[k-1], r.Nodes[k])
			arrive := depart - h*d
			if _, ok := level[r.Nodes[k]]; !ok {
				level[r.Nodes[k]] = arrive
			}
			depart = arrive
			if g.Table.IsStation(r.Nodes[k]) {
				depart = q
			}
		}
	}
	batteryAt := func(i int) float64 {
		if l, ok := level[i]; ok {
			return l
		}
		b, _ := c.Battery(i)
		return s.Value(b)
	}

	in := make(map[int]int)
	out := make(map[int]int)
	for _, a := range active {
		in[a.To]++
		if _, ok := out[a.From]; !ok {
			out[a.From] = a.To
		}
	}
	total := 0.0
	for _, k := range g.Part.Stations {
		if in[k] != 1 {
			continue
		}
		j, ok := out[k]
		if !ok {
			continue
		}
		d, _ := g.Distance(k, j)
		src := batteryAt(k)
		dst := batteryAt(j)
		if _, onRoute := level[k]; onRoute {
			// Leaving a station the vehicle departs full.
			dst = q - h*d
		}
		total += math.Max(0, dst-(src-h*d))
	}
	return total
}
