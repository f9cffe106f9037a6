// Package speedhive is a client for the MYLAPS Speedhive event results API.
//
// It covers the public read endpoints the tools need: organizations, their
// events (offset/count paginated), event session trees, session
// announcements, lap rows and classifications. Transient failures (network
// errors and 429/5xx responses) are retried with exponential backoff; any
// other non-2xx status is returned as an *APIError.
package speedhive
