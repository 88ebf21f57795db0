// Package daemon coordinates the long-running Podscribe process.
//
// It wires configuration, queue storage, the workflow manager, and the feed
// resolver into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes queue maintenance helpers, handles
// episode enqueueing on behalf of the IPC layer, and reports dependency
// health in its status snapshot.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
