package formulation

import (
	"fmt"
	"math"

	"github.com/kilianp07/evrptw/core/graph"
	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/core/model"
)

// Constraint family names.
const (
	FamilyVisitOnce       = "visit_once"
	FamilyStationOptional = "station_optional"
	FamilyFlow            = "flow"
	FamilyTime            = "time"
	FamilyRechargeTime    = "recharge_time"
	FamilyWindowEnd       = "window_end"
	FamilyWindowStart     = "window_start"
	FamilyLoadNonNeg      = "load_nonneg"
	FamilyLoad            = "load"
	FamilyLoadStart       = "load_start"
	FamilyBatteryNonNeg   = "battery_nonneg"
	FamilyBattery         = "battery"
	FamilyBatteryReset    = "battery_reset"
)

// Compiled is a model together with the index maps needed to read a
// solution back.
type Compiled struct {
	Formulation model.Formulation
	Graph       *graph.Graph
	Model       *milp.Model
	BigM        BigM

	x       [][]int // -1 on the diagonal
	tau     []int
	load    []int
	battery []int // nil for VRPTW
}

// X returns the variable of arc (i, j), or -1 for i == j.
func (c *Compiled) X(i, j int) int { return c.x[i][j] }

// Tau returns the arrival time variable of node i.
func (c *Compiled) Tau(i int) int { return c.tau[i] }

// Load returns the remaining load variable of node i.
func (c *Compiled) Load(i int) int { return c.load[i] }

// Battery returns the remaining battery variable of node i. The second
// value is false for formulations without battery.
func (c *Compiled) Battery(i int) (int, bool) {
	if c.battery == nil {
		return -1, false
	}
	return c.battery[i], true
}

// Compile builds the MILP of formulation f over g. It never fails on a graph
// produced by graph.Build: degenerate inputs yield a valid model whose
// feasibility is left to the solver.
func Compile(g *graph.Graph, f model.Formulation) *Compiled {
	c := &Compiled{
		Formulation: f,
		Graph:       g,
		Model:       milp.NewModel(fmt.Sprintf("%s_%s", f, g.Name)),
		BigM:        NewBigM(g),
	}
	c.addVars()
	c.setObjective()

	c.visitOnce()
	if f == model.EVRPTW {
		c.stationOptional()
	}
	c.flowConservation()
	c.timePropagation()
	if f == model.EVRPTW {
		c.rechargeTimePropagation()
	}
	c.timeWindows()
	c.loadPropagation()
	if f == model.EVRPTW {
		c.batteryPropagation()
		c.batteryReset()
	}
	return c
}

func (c *Compiled) addVars() {
	n := c.Graph.Table.Len()
	m := c.Model
	inf := math.Inf(1)

	c.x = make([][]int, n)
	for i := range c.x {
		c.x[i] = make([]int, n)
		c.x[i][i] = -1
	}
	for _, a := range c.Graph.Arcs() {
		c.x[a.From][a.To] = m.AddVar(fmt.Sprintf("x_%d_%d", a.From, a.To), milp.Binary, 0, 1)
	}
	c.tau = make([]int, n)
	c.load = make([]int, n)
	for i := 0; i < n; i++ {
		c.tau[i] = m.AddVar(fmt.Sprintf("tau_%d", i), milp.Continuous, 0, inf)
	}
	for i := 0; i < n; i++ {
		c.load[i] = m.AddVar(fmt.Sprintf("u_%d", i), milp.Continuous, 0, inf)
	}
	if c.Formulation == model.EVRPTW {
		c.battery = make([]int, n)
		for i := 0; i < n; i++ {
			c.battery[i] = m.AddVar(fmt.Sprintf("b_%d", i), milp.Continuous, 0, inf)
		}
	}
}

// setObjective minimises the distance of arcs leaving {0}∪F∪V towards
// F∪V∪{n+1}; the arc between the two depot copies is never charged.
func (c *Compiled) setObjective() {
	p := c.Graph.Part
	for _, i := range p.Sources() {
		for _, j := range p.Sinks() {
			if i == j || (i == p.DepotStart && j == p.DepotEnd) {
				continue
			}
			d, _ := c.Graph.Distance(i, j)
			c.Model.Objective.Add(c.x[i][j], d)
		}
	}
}

func (c *Compiled) outflow(i int) milp.Expr {
	var e milp.Expr
	for _, j := range c.Graph.Part.Sinks() {
		if i != j {
			e.Add(c.x[i][j], 1)
		}
	}
	return e
}

func (c *Compiled) visitOnce() {
	for _, i := range c.Graph.Part.Clients {
		c.Model.AddConstraint(FamilyVisitOnce, c.outflow(i), milp.Equal, 1)
	}
}

func (c *Compiled) stationOptional() {
	for _, i := range c.Graph.Part.Stations {
		c.Model.AddConstraint(FamilyStationOptional, c.outflow(i), milp.LessEq, 1)
	}
}

func (c *Compiled) flowConservation() {
	p := c.Graph.Part
	for _, j := range p.Visits() {
		e := c.outflow(j)
		for _, i := range p.Sources() {
			if i != j {
				e.Add(c.x[i][j], -1)
			}
		}
		c.Model.AddConstraint(FamilyFlow, e, milp.Equal, 0)
	}
}

// timePropagation: tau[i] + (t[i,j] + s[i]) x - M(1 - x) <= tau[j].
func (c *Compiled) timePropagation() {
	p := c.Graph.Part
	bigM := c.BigM.Time
	for _, i := range p.StartAndClients() {
		s := c.Graph.Table.Node(i).ServiceTime
		for _, j := range p.Sinks() {
			if i == j {
				continue
			}
			t, _ := c.Graph.TravelTime(i, j)
			var e milp.Expr
			e.Add(c.tau[i], 1).Add(c.tau[j], -1).Add(c.x[i][j], t+s+bigM)
			c.Model.AddConstraint(FamilyTime, e, milp.LessEq, bigM)
		}
	}
}

// rechargeTimePropagation: tau[i] + t[i,j] x + g(Q - b[i]) - M(1 - x) <= tau[j].
func (c *Compiled) rechargeTimePropagation() {
	p := c.Graph.Part
	v := c.Graph.Vehicle
	bigM := c.BigM.RechargeTime
	for _, i := range p.Stations {
		for _, j := range p.Sinks() {
			if i == j {
				continue
			}
			t, _ := c.Graph.TravelTime(i, j)
			var e milp.Expr
			e.Add(c.tau[i], 1).Add(c.tau[j], -1).Add(c.battery[i], -v.RechargeRate).Add(c.x[i][j], t+bigM)
			c.Model.AddConstraint(FamilyRechargeTime, e, milp.LessEq, bigM-v.RechargeRate*v.BatteryCapacity)
		}
	}
}

func (c *Compiled) timeWindows() {
	for _, j := range c.Graph.Part.All() {
		n := c.Graph.Table.Node(j)
		var e milp.Expr
		e.Add(c.tau[j], 1)
		c.Model.AddConstraint(FamilyWindowEnd, e, milp.LessEq, n.DueTime)
	}
	for _, j := range c.Graph.Part.All() {
		n := c.Graph.Table.Node(j)
		var e milp.Expr
		e.Add(c.tau[j], 1)
		c.Model.AddConstraint(FamilyWindowStart, e, milp.GreaterEq, n.ReadyTime)
	}
}

// loadPropagation: u[j] <= u[i] - q[i] x + C(1 - x), with u[0] in [0, C].
func (c *Compiled) loadPropagation() {
	p := c.Graph.Part
	bigM := c.BigM.Load
	for _, j := range p.Sinks() {
		var e milp.Expr
		e.Add(c.load[j], 1)
		c.Model.AddConstraint(FamilyLoadNonNeg, e, milp.GreaterEq, 0)
	}
	for _, i := range p.Sources() {
		q := c.Graph.Table.Node(i).Demand
		for _, j := range p.Sinks() {
			if i == j {
				continue
			}
			var e milp.Expr
			e.Add(c.load[j], 1).Add(c.load[i], -1).Add(c.x[i][j], q+bigM)
			c.Model.AddConstraint(FamilyLoad, e, milp.LessEq, bigM)
		}
	}
	var lo, hi milp.Expr
	lo.Add(c.load[p.DepotStart], 1)
	hi.Add(c.load[p.DepotStart], 1)
	c.Model.AddConstraint(FamilyLoadStart, lo, milp.GreaterEq, 0)
	c.Model.AddConstraint(FamilyLoadStart, hi, milp.LessEq, c.Graph.Vehicle.LoadCapacity)
}

// batteryPropagation: b[j] <= b[i] - h d[i,j] x + Q(1 - x) for client sources.
func (c *Compiled) batteryPropagation() {
	p := c.Graph.Part
	h := c.Graph.Vehicle.ConsumptionRate
	bigM := c.BigM.Battery
	for _, j := range p.Sinks() {
		var e milp.Expr
		e.Add(c.battery[j], 1)
		c.Model.AddConstraint(FamilyBatteryNonNeg, e, milp.GreaterEq, 0)
	}
	for _, j := range p.Sinks() {
		for _, i := range p.Clients {
			if i == j {
				continue
			}
			d, _ := c.Graph.Distance(i, j)
			var e milp.Expr
			e.Add(c.battery[j], 1).Add(c.battery[i], -1).Add(c.x[i][j], h*d+bigM)
			c.Model.AddConstraint(FamilyBattery, e, milp.LessEq, bigM)
		}
	}
}

// batteryReset: b[j] <= Q - h d[i,j] x when leaving the depot or a station.
func (c *Compiled) batteryReset() {
	p := c.Graph.Part
	v := c.Graph.Vehicle
	for _, j := range p.Sinks() {
		for _, i := range p.StartAndStations() {
			if i == j {
				continue
			}
			d, _ := c.Graph.Distance(i, j)
			var e milp.Expr
			e.Add(c.battery[j], 1).Add(c.x[i][j], v.ConsumptionRate*d)
			c.Model.AddConstraint(FamilyBatteryReset, e, milp.LessEq, v.BatteryCapacity)
		}
	}
}
