package model

import "fmt"

// VehicleTupleSize is the number of vehicle parameters read from an instance.
const VehicleTupleSize = 5

// UrbanSpeed is the average speed applied to VRPTW instances instead of the
// parsed value, modelling urban speed limits.
const UrbanSpeed = 52.5

// Vehicle holds the homogeneous fleet parameters of an instance.
type Vehicle struct {
	BatteryCapacity float64 `json:"battery_capacity"` // Q
	LoadCapacity    float64 `json:"load_capacity"`    // C
	ConsumptionRate float64 `json:"consumption_rate"` // h, battery per unit distance
	RechargeRate    float64 `json:"recharge_rate"`    // g, time per battery unit
	Speed           float64 `json:"speed"`            // v
}

// VehicleFromTuple reads the parameters in the instance order (Q, C, h, g, v).
func VehicleFromTuple(t []float64) (Vehicle, error) {
	if len(t) != VehicleTupleSize {
		return Vehicle{}, fmt.Errorf("%w: vehicle has %d values, want %d", ErrArity, len(t), VehicleTupleSize)
	}
	v := Vehicle{
		BatteryCapacity: t[0],
		LoadCapacity:    t[1],
		ConsumptionRate: t[2],
		RechargeRate:    t[3],
		Speed:           t[4],
	}
	return v, v.Validate()
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.BatteryCapacity < 0 || v.LoadCapacity < 0 || v.ConsumptionRate < 0 || v.RechargeRate < 0 {
		return fmt.Errorf("%w: negative vehicle parameter %+v", ErrVehicle, v)
	}
	return nil
}

// SpeedPolicy decides which speed converts distances into travel times.
// A positive Override replaces the parsed vehicle speed.
type SpeedPolicy struct {
	Override float64 `json:"override"`
}

// DefaultSpeedPolicy returns the policy each formulation uses when nothing
// is configured: VRPTW runs at UrbanSpeed, EVRPTW keeps the parsed speed.
func DefaultSpeedPolicy(f Formulation) SpeedPolicy {
	if f == VRPTW {
		return SpeedPolicy{Override: UrbanSpeed}
	}
	return SpeedPolicy{}
}

// Resolve returns the effective speed for v.
func (p SpeedPolicy) Resolve(v Vehicle) float64 {
	if p.Override > 0 {
		return p.Override
	}
	return v.Speed
}
