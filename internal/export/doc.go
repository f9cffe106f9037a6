// Package export writes parsed track records and rejected announcements to
// JSON, CSV, NDJSON and SQLite.
package export
