// Package namelist reads and writes the Fortran namelist files consumed by
// MESA.
//
// A namelist file is a sequence of groups:
//
//	&controls
//	   mixing_length_alpha = 1.5000000000d+00
//	   x_ctrl(1) = 2
//	/ ! end of controls namelist
//
// Values are typed literals: integers, floats with a d or e exponent,
// booleans (.true./.false., T/F), quoted strings and (re,im) complex pairs.
// Indexed options (x_ctrl(1)) and inline lists (x_ctrl = 1 2 3) are both
// decoded into an [Array] keyed by the 1-based Fortran index.
//
// [Groups] and [Options] preserve insertion order, so a file written with
// [Format] lists groups and options exactly in the order they were set.
//
// # Errors
//
// [ParseValue] returns a [*ValueNotParsedError] (matching
// [ErrValueNotParsed]) when a token is not a scalar literal. Callers use it
// to retry the token as an inline list with [ParseInline]. [Parse] returns a
// [*ParseError] for any line it cannot make sense of.
package namelist
