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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// startUid implements spec.md §3: startUid = max(1, max(oldUidNext,
// newUidNext - displayCount)).
func startUid(oldUidNext, newUidNext int64, displayCount int) int64 {
	v := oldUidNext
	if c := newUidNext - int64(displayCount); c > v {
		v = c
	}
	if v < 1 {
		v = 1
	}
	return v
}

// Loop is the worker iteration described in spec.md §4.4. One Loop per
// folder; created once, driven by exactly one Controller.
type Loop struct {
	name     string
	folder   Folder
	receiver Receiver
	cfg      FolderConfig
	wake     WakeLock

	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  int32 // atomic

	buffer *UntaggedBuffer

	idling    int32 // atomic bool
	sessionMu sync.Mutex
	session   *IdleSession
}

// NewLoop builds a Loop for one folder. folder, receiver and wake are all
// owned by the caller; the Loop never creates them.
func NewLoop(name string, folder Folder, receiver Receiver, cfg FolderConfig, wake WakeLock) *Loop {
	return &Loop{
		name:     name,
		folder:   folder,
		receiver: receiver,
		cfg:      cfg,
		wake:     wake,
		stopCh:   make(chan struct{}),
		buffer:   &UntaggedBuffer{},
	}
}

func (l *Loop) requestStop() {
	l.stopOnce.Do(func() {
		atomic.StoreInt32(&l.stopped, 1)
		close(l.stopCh)
	})
}

func (l *Loop) isStopped() bool {
	return atomic.LoadInt32(&l.stopped) != 0
}

// Idling reports whether the loop is currently parked in IDLE.
func (l *Loop) Idling() bool {
	return atomic.LoadInt32(&l.idling) != 0
}

func (l *Loop) currentSession() *IdleSession {
	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()
	return l.session
}

func (l *Loop) setSession(s *IdleSession) {
	l.sessionMu.Lock()
	l.session = s
	l.sessionMu.Unlock()
}

// run is the worker's entire lifetime: setup, the iterate/backoff loop,
// and unconditional teardown.
func (l *Loop) run() {
	_ = l.wake.Acquire(pushWakeLockTimeout)

	log.WithField("folder", l.name).Info("push_loop_start")

	var lastUidNext int64 = -1
	delayTime := NormalDelayTime
	idleFailureCount := 0
	needsPoll := false

	for !l.isStopped() {
		err := l.iterate(&lastUidNext, &needsPoll)

		if err == nil {
			delayTime = NormalDelayTime
			idleFailureCount = 0
			continue
		}

		if errors.Is(err, ErrAuthFailed) {
			_ = l.wake.Acquire(pushWakeLockTimeout)
			l.folder.Close()
			l.receiver.AuthenticationFailed()
			l.requestStop()
			break
		}

		if l.isStopped() {
			log.WithError(err).WithField("folder", l.name).Info("push_error_after_stop")
			continue
		}

		_ = l.wake.Acquire(pushWakeLockTimeout)
		l.buffer.Drain()
		l.receiver.SetPushActive(l.name, false)
		l.folder.Close()

		l.receiver.PushError(fmt.Sprintf("Push error for %s", l.name), err)
		l.receiver.Sleep(l.wake, delayTime)

		delayTime *= 2
		if delayTime > MaxDelayTime {
			delayTime = MaxDelayTime
		}

		idleFailureCount++
		if idleFailureCount > IdleFailureCountLimit {
			l.receiver.PushError(fmt.Sprintf("Push disabled for %s after %d consecutive errors", l.name, idleFailureCount), err)
			l.requestStop()
		}
	}

	l.receiver.SetPushActive(l.name, false)
	l.folder.Close()
	l.wake.Release()

	log.WithField("folder", l.name).Info("push_loop_exit")
}

// iterate is one pass of the worker loop: §4.4 steps 1-7.
func (l *Loop) iterate(lastUidNext *int64, needsPoll *bool) error {
	_ = l.wake.Acquire(pushWakeLockTimeout)

	oldUidNext := ParseState(l.receiver.GetPushState(l.name)).UidNext
	if oldUidNext < *lastUidNext {
		oldUidNext = *lastUidNext
	}

	openedNew, err := l.openFolderIfClosed()
	if err != nil {
		return err
	}

	if l.isStopped() {
		return nil
	}

	if ok, err := l.folder.SupportsIdle(); err != nil {
		return err
	} else if !ok {
		l.receiver.PushError(fmt.Sprintf("Push not supported for %s", l.name), nil)
		l.requestStop()
		return ErrUnsupported
	}

	if l.cfg.PushPollOnConnect && (openedNew || *needsPoll) {
		*needsPoll = false
		l.receiver.SyncFolder(l.name)
	}

	if l.isStopped() {
		return nil
	}

	newUidNext := l.folder.UidNext()
	if newUidNext < 0 {
		if hu := l.folder.HighestUid(); hu >= 0 {
			newUidNext = hu + 1
		} else {
			newUidNext = -1
		}
	}
	*lastUidNext = newUidNext

	su := startUid(oldUidNext, newUidNext, l.cfg.DisplayCount)
	if newUidNext > su {
		l.receiver.SyncFolder(l.name)
		return nil
	}

	return l.enterIdle()
}

func (l *Loop) openFolderIfClosed() (bool, error) {
	if l.folder.IsOpen() {
		return false, nil
	}

	if err := l.folder.Open(); err != nil {
		return false, err
	}

	return true, nil
}

// enterIdle runs one IDLE command end to end: mark active, set the
// read timeout, run it, and guarantee the session is torn down.
func (l *Loop) enterIdle() error {
	atomic.StoreInt32(&l.idling, 1)
	defer atomic.StoreInt32(&l.idling, 0)

	timeout := time.Duration(l.cfg.IdleRefreshMinutes)*time.Minute + IdleReadTimeoutIncrement
	l.folder.SetReadTimeout(timeout)

	session := newIdleSession(l.folder)
	l.setSession(session)
	defer l.setSession(nil)

	log.WithField("folder", l.name).Trace("push_idle_start")

	err := l.folder.ExecuteIdle(session.stopCh, func(ev Event) {
		l.handleEvent(session, ev)
	})

	session.stopAcceptingDone()

	log.WithFields(log.Fields{"folder": l.name, "error": err}).Trace("push_idle_end")

	return err
}

// handleEvent is the untagged callback invoked synchronously while IDLE
// is outstanding (spec.md §4.4 "Untagged callback during IDLE").
func (l *Loop) handleEvent(session *IdleSession, ev Event) {
	if l.isStopped() {
		session.stopIdle()
		// Fall through to the drain below rather than returning: the
		// source (ImapFolderPusher.java) still calls
		// processStoredUntaggedResponses() after stopIdle() on its way
		// out, flushing any buffered QRESYNC flag changes instead of
		// discarding them on the tick stop lands.
	} else {
		switch Classify(ev) {
		case DispositionBuffer:
			_ = l.wake.Acquire(pushWakeLockTimeout)
			l.buffer.Append(ev)
		case DispositionIdleAccepted:
			if err := session.startAcceptingDone(); err != nil {
				log.WithError(err).WithField("folder", l.name).Warn("push_idle_accept_failed")
			}
			l.wake.Release()
		}
	}

	if !l.folder.MoreResponsesAvailable() {
		l.drainAndDecide()
	}
}

// drainAndDecide implements the drain described in §4.3/§4.4: arrival
// order, short-circuiting on the first response that triggers a sync.
func (l *Loop) drainAndDecide() {
	events := l.buffer.Drain()
	if len(events) == 0 {
		return
	}

	messageCount := l.folder.MessageCount()
	qresync := l.folder.SupportsQresync()

	for _, ev := range events {
		if ev.Kind == EventVanished {
			log.WithFields(log.Fields{"folder": l.name, "uids": ev.VanishedUIDs}).Debug("push_vanished")
		}

		d := Decide(ev, messageCount, l.cfg.DisplayCount, qresync)

		if d.FlagChange != nil {
			l.receiver.MessageFlagsChanged(l.name, *d.FlagChange)
		}
		if d.HasModSeq {
			l.receiver.HighestModSeqChanged(l.name, d.ModSeq)
		}
		if d.Sync {
			l.receiver.SyncFolder(l.name)
			return
		}
	}
}

// pushWakeLockTimeout is PUSH_WAKE_LOCK_TIMEOUT from spec.md §6: how long
// a wake-lock acquired to cover setup/teardown is allowed to hold without
// being explicitly released.
const pushWakeLockTimeout = 30 * time.Second
