// Package session owns the pairing-code to session mapping.
//
// The Registry is the single source of truth for session existence. All
// reads and mutations happen under one mutex held only for the map
// operation itself, never across a network send. Connection handles are
// opaque to this package; callers close sockets returned by RemoveSession
// and SweepExpired themselves.
package session
