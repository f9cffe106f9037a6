// Package storage provides file persistence for speedhive-tools.
//
// It covers three concerns: record snapshots used by the watch flow
// (snapshot_<org>.json under the data directory), newline-delimited JSON
// files that may be gzip compressed, and full organization dumps. A dump
// directory holds events, sessions, announcements and laps NDJSON files plus
// a manifest.json describing the run. The default storage location is
// ~/.local/share/speedhive/.
package storage
