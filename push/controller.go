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

import "sync/atomic"

// Controller is the external entry point (spec.md §4.5): start/refresh/
// stop, coordinating the Loop and its wake-lock from the host's threads.
type Controller struct {
	loop *Loop

	started int32 // atomic
	stopped int32 // atomic

	done chan struct{}
}

// NewController wraps a Loop. The Loop isn't started until Start is
// called.
func NewController(loop *Loop) *Controller {
	return &Controller{loop: loop, done: make(chan struct{})}
}

// Start launches the worker. Calling it twice is an Invariant violation.
func (c *Controller) Start() error {
	if !atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		return ErrAlreadyStarted
	}

	go func() {
		c.loop.run()
		close(c.done)
	}()

	return nil
}

// Refresh ends the current IDLE cleanly via DONE if one is outstanding,
// causing the next loop iteration to poll immediately. A no-op if the
// loop isn't currently idling.
func (c *Controller) Refresh() {
	session := c.loop.currentSession()
	if session == nil {
		return
	}

	_ = c.loop.wake.Acquire(pushWakeLockTimeout)
	session.stopIdle()
}

// Stop requests the worker terminate, closing the folder to break any
// blocking read. Calling it twice is an Invariant violation.
func (c *Controller) Stop() error {
	if !atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		return ErrAlreadyStopped
	}

	c.loop.requestStop()

	if session := c.loop.currentSession(); session != nil {
		session.stopIdle()
	}

	if c.loop.folder.IsOpen() {
		c.loop.folder.Close()
	}

	return nil
}

// Done is closed once the worker has fully exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Idling reports whether the underlying Loop is currently parked in IDLE.
func (c *Controller) Idling() bool {
	return c.loop.Idling()
}
