package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evrptw/core/formulation"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <instance-file>",
	Short: "Print graph and model statistics of an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	addModelFlags(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}

type inspectReport struct {
	Instance      string         `yaml:"instance"`
	Formulation   string         `yaml:"formulation"`
	Speed         float64        `yaml:"speed"`
	Nodes         int            `yaml:"nodes"`
	Stations      int            `yaml:"station_nodes"`
	Clients       int            `yaml:"clients"`
	Arcs          int            `yaml:"arcs"`
	Variables     int            `yaml:"variables"`
	Binaries      int            `yaml:"binaries"`
	Constraints   int            `yaml:"constraints"`
	Families      map[string]int `yaml:"families"`
	BigM          bigMReport     `yaml:"big_m"`
	TotalDemand   float64        `yaml:"total_demand"`
	LoadCapacity  float64        `yaml:"load_capacity"`
	BatteryCap    float64        `yaml:"battery_capacity"`
	DepotDeadline float64        `yaml:"depot_due_time"`
}

type bigMReport struct {
	Time         float64 `yaml:"time"`
	RechargeTime float64 `yaml:"recharge_time"`
	Load         float64 `yaml:"load"`
	Battery      float64 `yaml:"battery"`
}

func newInspectReport(c *formulation.Compiled) inspectReport {
	g := c.Graph
	var demand float64
	for _, i := range g.Part.Clients {
		demand += g.Table.Node(i).Demand
	}
	return inspectReport{
		Instance:      g.Name,
		Formulation:   c.Formulation.String(),
		Speed:         g.Speed,
		Nodes:         g.Table.Len(),
		Stations:      len(g.Part.Stations),
		Clients:       len(g.Part.Clients),
		Arcs:          len(g.Arcs()),
		Variables:     len(c.Model.Vars),
		Binaries:      c.Model.NumBinaries(),
		Constraints:   len(c.Model.Constraints),
		Families:      c.Model.FamilyCounts(),
		BigM:          bigMReport(c.BigM),
		TotalDemand:   demand,
		LoadCapacity:  g.Vehicle.LoadCapacity,
		BatteryCap:    g.Vehicle.BatteryCapacity,
		DepotDeadline: g.Table.Node(g.Part.DepotStart).DueTime,
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	if err := applyModelFlags(cmd); err != nil {
		return err
	}
	c, err := compileFile(args[0])
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(newInspectReport(c)); err != nil {
		return err
	}
	return enc.Close()
}
