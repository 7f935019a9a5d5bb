// Package api defines wire-format types and converters for the IPC layer. It
// translates session models into transport-friendly DTOs the CLI can render
// without coupling to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (session.Status,
// session.AuthMode, session.RenderKind) are exposed as lowercase strings and
// timestamps use RFC3339.
package api
