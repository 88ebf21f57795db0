// Package transcribe runs downloaded audio through whisper.cpp and
// writes one plain-text transcript per episode.
//
// The package has three layers:
//   - Service wraps the external commands (ffmpeg conversion to the
//     mono 16 kHz WAV whisper expects, then whisper-cli with JSON
//     output) behind a command runner seam.
//   - Transcriber is the queue stage that drives the service and maps
//     failures onto the shared error markers, keeping model-load
//     problems distinct from decode problems.
//   - The model preset table and downloader install published ggml
//     models into the cache directory.
package transcribe
