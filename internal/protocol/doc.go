// Package protocol defines the broker wire protocol: the message envelope,
// the closed set of message types, endpoint roles, and the static routing
// table that decides where a message goes based on its declared type and
// the sender's role.
//
// The broker never inspects payload fields beyond the envelope "type" key.
package protocol
