// Package mesa turns grid runs into the inlist files MESA reads.
//
// Every grid shares one template directory holding two files:
//
//   - inlist, the file MESA opens first, which only chains to
//     inlist_project (or carries the bin2dco controls);
//   - inlist_project, every template option that differs from the
//     installation defaults.
//
// Each run directory then holds the options of that run only: inlist_star
// for single stars, or inlist_binary, inlist1 and inlist2 for binaries.
//
// A [RunConfig] is filled in two steps, [RunConfig.SetTemplateNamelists]
// and [RunConfig.SetRunNamelists], before any file is rendered. The template
// is computed on the first run of a grid and passed read-only to
// [RunConfig.RunFiles] of every run.
package mesa
