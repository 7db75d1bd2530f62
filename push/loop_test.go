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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartUid(t *testing.T) {
	// plain case: old cursor already ahead of the display window.
	assert.Equal(t, int64(100), startUid(100, 60, 5))
	// display window wins when the host has never synced before.
	assert.Equal(t, int64(75), startUid(1, 100, 25))
	// never goes below 1.
	assert.Equal(t, int64(1), startUid(0, 0, 25))
	assert.Equal(t, int64(1), startUid(-1, 10, 25))
}

// instantIdleNoEvents never blocks: it's used by iterate()-level tests that don't
// run inside a goroutine driven by a Controller and so have no one to
// close the session's stop channel for them.
func instantIdleNoEvents(stop <-chan struct{}, handle func(Event)) error {
	return nil
}

func TestIterateNoSyncWhenCaughtUp(t *testing.T) {
	folder := &fakeFolder{idleSupport: true, uidNext: 50, idleFunc: instantIdleNoEvents}
	receiver := &fakeReceiver{state: "uidNext=50"}

	loop := NewLoop("INBOX", folder, receiver, FolderConfig{DisplayCount: 25}, &fakeWakeLock{})

	var lastUidNext int64 = -1
	var needsPoll bool
	err := loop.iterate(&lastUidNext, &needsPoll)

	assert.NoError(t, err)
	assert.Equal(t, 0, receiver.syncCount())
	assert.Equal(t, int64(50), lastUidNext)
}

func TestIterateSyncsWhenNewMailArrived(t *testing.T) {
	folder := &fakeFolder{idleSupport: true, uidNext: 80, idleFunc: instantIdleNoEvents}
	receiver := &fakeReceiver{state: "uidNext=50"}

	loop := NewLoop("INBOX", folder, receiver, FolderConfig{DisplayCount: 25}, &fakeWakeLock{})

	var lastUidNext int64 = -1
	var needsPoll bool
	err := loop.iterate(&lastUidNext, &needsPoll)

	assert.NoError(t, err)
	assert.Equal(t, []string{"INBOX"}, receiver.syncCalls)
}

// TestIterateCursorMonotonicity is the monotonicity invariant: a
// still-in-memory cursor never regresses just because the persisted state
// (e.g. a stale file read at startup) reports something older.
func TestIterateCursorMonotonicity(t *testing.T) {
	folder := &fakeFolder{idleSupport: true, uidNext: 80, idleFunc: instantIdleNoEvents}
	receiver := &fakeReceiver{state: "uidNext=10"} // stale/behind

	loop := NewLoop("INBOX", folder, receiver, FolderConfig{DisplayCount: 25}, &fakeWakeLock{})

	var lastUidNext int64 = 80 // already observed and caught up in-memory
	var needsPoll bool
	err := loop.iterate(&lastUidNext, &needsPoll)

	assert.NoError(t, err)
	// Had the stale persisted state(10) been used instead of the
	// monotonic in-memory cursor(80), startUid(10, 80, 25) = 55 and 80 >
	// 55 would have forced a spurious resync.
	assert.Equal(t, 0, receiver.syncCount())
}

func TestIteratePushPollOnConnectSyncsOnFreshOpen(t *testing.T) {
	folder := &fakeFolder{idleSupport: true, uidNext: 50, idleFunc: instantIdleNoEvents}
	receiver := &fakeReceiver{state: "uidNext=50"}

	cfg := FolderConfig{DisplayCount: 25, PushPollOnConnect: true}
	loop := NewLoop("INBOX", folder, receiver, cfg, &fakeWakeLock{})

	var lastUidNext int64 = -1
	var needsPoll bool
	err := loop.iterate(&lastUidNext, &needsPoll)

	assert.NoError(t, err)
	assert.Equal(t, []string{"INBOX"}, receiver.syncCalls)
}

func TestIterateUnsupportedIdleStopsLoop(t *testing.T) {
	folder := &fakeFolder{idleSupport: false}
	receiver := &fakeReceiver{}

	loop := NewLoop("INBOX", folder, receiver, FolderConfig{DisplayCount: 25}, &fakeWakeLock{})

	var lastUidNext int64 = -1
	var needsPoll bool
	err := loop.iterate(&lastUidNext, &needsPoll)

	assert.ErrorIs(t, err, ErrUnsupported)
	assert.True(t, loop.isStopped())
}

// TestLoopHappyPathWakeLockBalance drives a full Controller start/stop
// cycle through one successful IDLE (accepted, then cleanly cancelled) and
// checks the wake-lock is back to its rest state once the loop has
// actually exited: the acquire taken to cover IDLE setup is released the
// moment the server's continuation is observed, and the acquire taken to
// cover run()'s own setup/teardown is released exactly once, at the very
// end.
func TestLoopHappyPathWakeLockBalance(t *testing.T) {
	folder := &fakeFolder{
		idleSupport: true,
		uidNext:     50,
		idleEvents:  []Event{{Kind: EventIdleAccepted}},
	}
	receiver := &fakeReceiver{state: "uidNext=50"}
	wake := &fakeWakeLock{}

	loop := NewLoop("INBOX", folder, receiver, FolderConfig{DisplayCount: 25, IdleRefreshMinutes: 1}, wake)
	controller := NewController(loop)

	assert.NoError(t, controller.Start())

	assert.Eventually(t, func() bool { return controller.Idling() }, time.Second, time.Millisecond)

	assert.NoError(t, controller.Stop())
	<-controller.Done()

	assert.Equal(t, 0, wake.balance())
}

// TestLoopBackoffShapeAndFailureCap drives a Loop whose every IDLE attempt
// fails immediately, and checks both the doubling-capped-at-MaxDelayTime
// backoff shape and that the loop disables itself after exactly
// IdleFailureCountLimit+1 consecutive failures.
func TestLoopBackoffShapeAndFailureCap(t *testing.T) {
	boom := errors.New("boom")
	folder := &fakeFolder{
		idleSupport: true,
		uidNext:     50,
		idleFunc: func(stop <-chan struct{}, handle func(Event)) error {
			return boom
		},
	}
	receiver := &fakeReceiver{state: "uidNext=50"}
	wake := &fakeWakeLock{}

	loop := NewLoop("INBOX", folder, receiver, FolderConfig{DisplayCount: 25, IdleRefreshMinutes: 1}, wake)
	controller := NewController(loop)

	assert.NoError(t, controller.Start())

	select {
	case <-controller.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not disable itself after the failure cap was reached")
	}

	want := []time.Duration{
		5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second,
		80 * time.Second, 160 * time.Second, 300 * time.Second, 300 * time.Second,
		300 * time.Second, 300 * time.Second, 300 * time.Second,
	}
	assert.Equal(t, want, receiver.sleepSnapshot())
	assert.Equal(t, 0, receiver.authFailed)

	msgs := receiver.pushErrorMsgsSnapshot()
	assert.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "disabled")
}

// TestHandleEventDrainsAfterStop is the drain-after-stop regression test:
// handleEvent must still flush already-buffered events through
// drainAndDecide on the tick the loop is stopped, rather than discarding
// them, matching the source's stopIdle()-then-drain ordering.
func TestHandleEventDrainsAfterStop(t *testing.T) {
	folder := &fakeFolder{idleSupport: true, messageCount: 10}
	receiver := &fakeReceiver{}

	loop := NewLoop("INBOX", folder, receiver, FolderConfig{DisplayCount: 25}, &fakeWakeLock{})
	loop.buffer.Append(Event{Kind: EventVanished})

	loop.requestStop()

	session := newIdleSession(folder)
	loop.handleEvent(session, Event{Kind: EventExists, MessageCount: 11})

	assert.Equal(t, []string{"INBOX"}, receiver.syncCalls)
}

func TestLoopAuthFailureStopsImmediately(t *testing.T) {
	folder := &fakeFolder{
		idleSupport: true,
		uidNext:     50,
		idleFunc: func(stop <-chan struct{}, handle func(Event)) error {
			return ErrAuthFailed
		},
	}
	receiver := &fakeReceiver{state: "uidNext=50"}
	wake := &fakeWakeLock{}

	loop := NewLoop("INBOX", folder, receiver, FolderConfig{DisplayCount: 25, IdleRefreshMinutes: 1}, wake)
	controller := NewController(loop)

	assert.NoError(t, controller.Start())

	select {
	case <-controller.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after an authentication failure")
	}

	assert.Equal(t, 1, receiver.authFailed)
	assert.Equal(t, 0, receiver.sleepCount())
}
