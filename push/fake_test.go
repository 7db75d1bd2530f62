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
	"context"
	"sync"
	"time"
)

// fakeFolder is a hand-written Folder rather than a mock, where
// ingest_test.go uses a real in-process server instead: here a
// real server isn't needed since Loop only ever talks to the narrow Folder
// surface.
type fakeFolder struct {
	mu sync.Mutex

	name string

	open         bool
	openErr      error
	idleSupport  bool
	idleErr      error
	qresync      bool
	uidNext      int64
	highestUid   int64
	messageCount uint32

	// idleFunc, when set, drives ExecuteIdle directly. Otherwise
	// ExecuteIdle sends idleEvents then blocks on stop.
	idleFunc   func(stop <-chan struct{}, handle func(Event)) error
	idleEvents []Event

	readTimeout time.Duration
	openCount   int
	closeCount  int
}

func (f *fakeFolder) Name() string { return f.name }

func (f *fakeFolder) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	f.openCount++
	return nil
}

func (f *fakeFolder) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closeCount++
}

func (f *fakeFolder) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeFolder) UidNext() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uidNext
}

func (f *fakeFolder) HighestUid() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.highestUid
}

func (f *fakeFolder) MessageCount() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messageCount
}

func (f *fakeFolder) SupportsIdle() (bool, error) {
	return f.idleSupport, f.idleErr
}

func (f *fakeFolder) SupportsQresync() bool { return f.qresync }

func (f *fakeFolder) SetReadTimeout(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readTimeout = d
}

func (f *fakeFolder) MoreResponsesAvailable() bool { return false }

func (f *fakeFolder) ExecuteIdle(stop <-chan struct{}, handle func(Event)) error {
	if f.idleFunc != nil {
		return f.idleFunc(stop, handle)
	}

	for _, ev := range f.idleEvents {
		handle(ev)
	}

	<-stop
	return nil
}

// fakeReceiver is a hand-written Receiver recording every call it gets, the
// same style as the teacher's tests favour a literal struct over a mock for
// a handful of methods.
type fakeReceiver struct {
	mu sync.Mutex

	state string

	syncCalls     []string
	flagChanges   []FlagChange
	modSeqs       []uint64
	activeCalls   []bool
	pushErrors    []error
	pushErrorMsgs []string
	authFailed    int
	sleeps        []time.Duration
}

func (r *fakeReceiver) SyncFolder(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncCalls = append(r.syncCalls, name)
}

func (r *fakeReceiver) MessageFlagsChanged(name string, change FlagChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flagChanges = append(r.flagChanges, change)
}

func (r *fakeReceiver) HighestModSeqChanged(name string, modseq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modSeqs = append(r.modSeqs, modseq)
}

func (r *fakeReceiver) SetPushActive(name string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeCalls = append(r.activeCalls, active)
}

func (r *fakeReceiver) PushError(msg string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushErrors = append(r.pushErrors, cause)
	r.pushErrorMsgs = append(r.pushErrorMsgs, msg)
}

func (r *fakeReceiver) AuthenticationFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authFailed++
}

func (r *fakeReceiver) Sleep(wake WakeLock, d time.Duration) {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	// Deliberately doesn't call time.Sleep: tests need the backoff shape,
	// not real wall-clock delay.
}

func (r *fakeReceiver) GetPushState(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *fakeReceiver) GetContext() context.Context {
	return context.Background()
}

func (r *fakeReceiver) syncCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.syncCalls)
}

func (r *fakeReceiver) sleepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sleeps)
}

func (r *fakeReceiver) sleepSnapshot() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.sleeps))
	copy(out, r.sleeps)
	return out
}

func (r *fakeReceiver) pushErrorMsgsSnapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.pushErrorMsgs))
	copy(out, r.pushErrorMsgs)
	return out
}

// fakeWakeLock counts outstanding acquires so a test can assert every
// Acquire on an execution path was matched by a Release.
type fakeWakeLock struct {
	mu           sync.Mutex
	count        int
	maxCount     int
	unbalanced   int
}

func (w *fakeWakeLock) Acquire(timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count++
	if w.count > w.maxCount {
		w.maxCount = w.count
	}
	return nil
}

func (w *fakeWakeLock) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count == 0 {
		w.unbalanced++
		return
	}
	w.count--
}

func (w *fakeWakeLock) balance() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
