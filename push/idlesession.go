/*
 * MailPump - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package push

import "sync"

// IdleSession owns one outstanding IDLE's lifecycle: it guards against
// sending DONE more than once, and against sending it before the
// connection is even idling.
//
// The actual DONE write is delegated to the underlying Folder.ExecuteIdle
// call via closing stopCh (go-imap's own Idle writes DONE once that
// channel closes and the connection is parked) — IdleSession's job is
// purely the idempotency/ordering guard spec.md §4.1 describes, not the
// wire write itself. See DESIGN.md for why that split is safe here.
type IdleSession struct {
	mu sync.Mutex

	folder    Folder // nil once detached
	accepting bool

	stopCh    chan struct{}
	closeOnce sync.Once
}

func newIdleSession(f Folder) *IdleSession {
	return &IdleSession{
		folder: f,
		stopCh: make(chan struct{}),
	}
}

// startAcceptingDone is called once the server has accepted the IDLE
// (i.e. sent its "+" continuation). Requires the connection still be
// attached.
func (s *IdleSession) startAcceptingDone() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.folder == nil {
		return ErrNoConnection
	}

	s.accepting = true
	return nil
}

// stopAcceptingDone detaches the connection from this session. Called in
// the "finally" of the IDLE command; a subsequent stopIdle is then a
// no-op.
func (s *IdleSession) stopAcceptingDone() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folder = nil
	s.accepting = false
}

// stopIdle sends DONE at most once per session. Idempotent: a second call,
// or a call before startAcceptingDone, does nothing.
func (s *IdleSession) stopIdle() {
	s.mu.Lock()
	wasAccepting := s.accepting
	s.accepting = false
	s.mu.Unlock()

	if !wasAccepting {
		return
	}

	s.closeOnce.Do(func() { close(s.stopCh) })
}
