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

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// refCountedWakeLock is the default WakeLock: there's no real
// power-management collaborator outside Android, so this just counts
// acquire/release pairs and logs imbalance, which is enough for the
// "every acquire is matched by a release" property to be checkable.
type refCountedWakeLock struct {
	mu    sync.Mutex
	name  string
	count int
}

// NewWakeLock returns a no-op WakeLock tagged with a folder name, the way
// the original tags every wake-lock with its owning folder.
func NewWakeLock(name string) WakeLock {
	return &refCountedWakeLock{name: name}
}

func (w *refCountedWakeLock) Acquire(timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	log.WithFields(log.Fields{"folder": w.name, "count": w.count, "timeout": timeout}).Trace("push_wakelock_acquire")
	return nil
}

func (w *refCountedWakeLock) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count == 0 {
		log.WithField("folder", w.name).Warn("push_wakelock_unbalanced_release")
		return
	}

	w.count--
	log.WithFields(log.Fields{"folder": w.name, "count": w.count}).Trace("push_wakelock_release")
}
