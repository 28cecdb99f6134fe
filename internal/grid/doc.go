// Package grid expands a grid description into the individual runs of a
// parameter study.
//
// A grid description maps namelist groups to options whose value is either
// a scalar or a list of candidates:
//
//	binary_controls:
//	  m1: [10.0, 20.0]
//	  m2: 8.0
//	controls:
//	  mixing_length_alpha: [1.5, 2.0]
//
// [Enumerate] walks the Cartesian product of every list in document order.
// The first option varies slowest, so the description above yields
//
//	0: m1=10 m2=8 mixing_length_alpha=1.5
//	1: m1=10 m2=8 mixing_length_alpha=2
//	2: m1=20 m2=8 mixing_length_alpha=1.5
//	3: m1=20 m2=8 mixing_length_alpha=2
//
// Run ids are part of the on-disk layout and of the run-record table, so
// the order is stable for a given description. Runs removed by a
// [Condition] leave gaps; survivors keep their ids.
package grid
