// Package session holds the in-memory aggregate for one conversion session:
// the ordered file entries, completed artifacts, authentication mode, and the
// single-job conversion lock.
//
// Session is exclusively owned by the daemon; the rendering layer only sees
// Snapshot copies. Every invariant (capacity bound, unique names, format
// eligibility, at-most-one conversion job) is enforced here rather than at
// the call sites.
package session
