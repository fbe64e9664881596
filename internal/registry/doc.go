// Package registry holds the named parameters of a fit, their prior
// distributions and their current values.
//
// The registry is the only mutable state touched during a likelihood call:
// the sampler's flat vector is written into the free slots with
// SetFromVector, and every model component reads values back by name. Fixed
// parameters contribute no dimension to the vector and always resolve to
// their constant.
//
// A Registry is not safe for concurrent use. Workers that evaluate draws in
// parallel each own a Clone.
package registry
