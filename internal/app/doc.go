// Package app contains the application layer: the live-status monitor
// that owns the poll loop, stream state, and notification dispatch.
package app
