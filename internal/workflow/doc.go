// Package workflow drives queued episodes through the download and
// transcription stages. A single background goroutine polls the queue,
// runs one item at a time, and persists every status transition so a
// restart can resume from the last safe checkpoint.
package workflow
