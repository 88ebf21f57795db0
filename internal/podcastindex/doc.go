// Package podcastindex wraps the podcastindex.org search API.
//
// Every request carries the index's time-boxed signature headers; the clock
// is injectable so signatures stay deterministic under test. Failures map
// onto the shared service error markers: bad credentials surface as auth
// errors, index-side failures as service errors, transport problems as
// network errors.
package podcastindex
