// Package api defines wire-format types and converters shared by the IPC
// layer and the CLI. It translates internal queue models into
// transport-friendly DTOs so consumers never couple to storage types, and
// hosts the enqueue workflow both the daemon and the store-direct CLI
// fallback drive.
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status) are exposed
// as lowercase strings and timestamps use RFC3339 with milliseconds.
package api
