// Package server implements the pairing and relay broker.
//
// One agent and one controller rendezvous via a 6-digit code and exchange
// opaque JSON frames and raw binary frames. The broker routes by declared
// message type only, keeps no history, and drops anything it cannot
// deliver. Two background loops police liveness (WebSocket ping/pong) and
// session age (fixed TTL sweep).
package server
