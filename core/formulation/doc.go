// Package formulation compiles a routing graph into the EVRPTW or VRPTW
// mixed-integer program: arc binaries x[i,j], arrival times tau[i],
// remaining load u[i] and, for EVRPTW, remaining battery b[i].
//
// Every "if the arc is used then propagate" row is written with a big-M
// relaxation so that it is slack when x[i,j] = 0. The constants are kept in
// BigM and are only valid while times stay within the depot horizon, loads
// within C and battery levels within Q; BigM.Dominates checks that coupling
// for a given graph.
package formulation
