package server

import "time"

// heartbeatLoop probes every open connection each tick. A connection that
// has not answered since the previous tick is forcibly closed, so a peer
// gets two full periods to respond before eviction.
func (s *Server) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			for _, c := range s.snapshotConns() {
				if !c.expireLiveness() {
					c.logger.Info("heartbeat timeout")
					s.closeConn(c, "heartbeat timeout")
					continue
				}
				c.ping()
			}
		}
	}
}

// reapLoop evicts sessions older than the TTL, independent of traffic.
// Both sockets of an expired session are force-closed.
func (s *Server) reapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			expired := s.registry.SweepExpired(time.Now(), s.cfg.SessionTTL)
			for _, sess := range expired {
				s.logger.Info("expired session removed",
					"code", sess.Code,
					"age", time.Since(sess.CreatedAt),
				)
				if sess.Agent != nil {
					s.closeConn(sess.Agent, "session expired")
				}
				if sess.Controller != nil {
					s.closeConn(sess.Controller, "session expired")
				}
			}
		}
	}
}
