// Package cli implements the speedhive command-line interface.
//
// The cli package provides the Cobra-based CLI with subcommands to screen a
// single announcement, look up organizations, collect an organization's track
// records, dump and re-parse an organization's raw data, report the fastest
// record per class, watch for newly announced records and serve the parser
// over HTTP. Output is human-readable text or JSON.
package cli
