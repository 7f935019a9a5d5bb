// Package daemon coordinates the long-running morph process.
//
// It wires configuration, the session aggregate, the ingestion pipeline, the
// conversion coordinator, the auth watcher, history storage, and
// notifications into a single lifecycle with flock-based locking to prevent
// multiple instances. One-time user notices (the sign-in reset message, the
// guest login nudge) are buffered here until an IPC caller drains them.
//
// Keep orchestration logic here: the individual services should live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
