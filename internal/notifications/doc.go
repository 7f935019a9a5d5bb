// Package notifications delivers session events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The Service interface covers the milestones worth pushing to a
// phone: registrations, conversion outcomes, and sign-in resets.
package notifications
