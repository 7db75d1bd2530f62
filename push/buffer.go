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

// UntaggedBuffer is a mutex-guarded ordered list of responses received
// while an IDLE is in flight. Append/Drain are the only operations;
// readers must not hold the lock across a callback into host code.
type UntaggedBuffer struct {
	mu    sync.Mutex
	items []Event
}

func (b *UntaggedBuffer) Append(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, ev)
}

// Drain atomically reads and clears the buffer, preserving arrival order.
func (b *UntaggedBuffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.items
	b.items = nil
	return items
}
