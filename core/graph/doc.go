// Package graph expands an instance into the routing graph used by the
// formulations: depot start at index 0, every recharge station copy, every
// client and the depot end at index n+1. The result is an immutable
// NodeTable together with the index partition and the complete distance and
// travel-time maps over ordered node pairs.
package graph
