// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between session models and lightweight wire representations. One-time
// notices buffered by the daemon (login nudges, re-upload prompts) ride along
// on the responses of the commands a user is likely to run next.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
