// Package engine runs the rupture-detection binary for one event in an
// isolated per-event working directory, and parses its output files back
// into a types.FinderSolution. The binary itself is an external
// collaborator; this package only owns the working directory, the config
// template, the child-process invocation, and the output parsing
// described by its file contract.
package engine
