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
	"fmt"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"
	goclient "github.com/emersion/go-imap/client"
	imap2 "github.com/vs49688/imappush/imap"
)

// IMAPFolder adapts an imap2.Client plus the Updates channel it was built
// with into the Folder surface Loop drives. It owns no socket itself;
// Open/Close just select/logout the client it's given.
type IMAPFolder struct {
	name    string
	client  imap2.Client
	updates <-chan goclient.Update
	open    bool
}

// NewIMAPFolder builds a Folder backed by a live (or persistent) IMAP
// client. updates must be the same channel the client was constructed
// with (imap2.ClientConfig.Updates).
func NewIMAPFolder(name string, c imap2.Client, updates <-chan goclient.Update) *IMAPFolder {
	return &IMAPFolder{name: name, client: c, updates: updates}
}

func (f *IMAPFolder) Name() string { return f.name }

func (f *IMAPFolder) Open() error {
	if _, err := f.client.Select(f.name, false); err != nil {
		if isAuthError(err) {
			return fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return err
	}
	f.open = true
	return nil
}

// isAuthError is a heuristic: go-imap surfaces a failed login as a plain
// error from the authenticator, with no sentinel of its own to match on.
func isAuthError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "authenticat") || strings.Contains(s, "login") || strings.Contains(s, "credentials")
}

func (f *IMAPFolder) Close() {
	f.open = false
	_ = f.client.Logout()
}

func (f *IMAPFolder) IsOpen() bool { return f.open }

func (f *IMAPFolder) UidNext() int64 {
	mb := f.client.Mailbox()
	if mb == nil || mb.UidNext == 0 {
		return -1
	}
	return int64(mb.UidNext)
}

// HighestUid isn't tracked by the plain go-imap MailboxStatus; UidNext is
// always present on a real server's SELECT response, so this fallback is
// rarely exercised in practice. Kept as -1 (unknown) so the loop's formula
// degrades to "no sync" rather than guessing.
func (f *IMAPFolder) HighestUid() int64 {
	return -1
}

func (f *IMAPFolder) MessageCount() uint32 {
	mb := f.client.Mailbox()
	if mb == nil {
		return 0
	}
	return mb.Messages
}

func (f *IMAPFolder) SetReadTimeout(d time.Duration) {
	f.client.SetReadTimeout(d)
}

func (f *IMAPFolder) SupportsIdle() (bool, error) {
	return f.client.Support("IDLE")
}

func (f *IMAPFolder) SupportsQresync() bool {
	ok, _ := f.client.Support("QRESYNC")
	return ok
}

func (f *IMAPFolder) MoreResponsesAvailable() bool {
	return len(f.updates) > 0
}

// ExecuteIdle issues IDLE via go-imap's own client.Idle, which owns the
// wire-level DONE write; stop closing is what triggers it. We simulate
// the server's "+" continuation immediately rather than observing it
// directly, since go-imap's Updates channel doesn't surface it.
func (f *IMAPFolder) ExecuteIdle(stop <-chan struct{}, handle func(Event)) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case upd, ok := <-f.updates:
				if !ok {
					return
				}
				if ev, matched := fromUpdate(upd); matched {
					handle(ev)
				}
			case <-done:
				return
			}
		}
	}()

	handle(Event{Kind: EventIdleAccepted})

	return f.client.Idle(stop, &goclient.IdleOptions{})
}

// fromUpdate converts a go-imap client.Update into our own parsed Event.
// VANISHED has no first-class representation in this client version; a
// server that sends it surfaces as an untagged status line, which we
// detect by prefix.
func fromUpdate(upd goclient.Update) (Event, bool) {
	switch u := upd.(type) {
	case *goclient.MailboxUpdate:
		if u.Mailbox == nil {
			return Event{}, false
		}
		return Event{Kind: EventExists, MessageCount: u.Mailbox.Messages}, true

	case *goclient.ExpungeUpdate:
		return Event{Kind: EventExpunge, SeqNum: u.SeqNum}, true

	case *goclient.MessageUpdate:
		if u.Message == nil {
			return Event{}, false
		}

		ev := Event{
			Kind:   EventFetch,
			SeqNum: u.Message.SeqNum,
			UID:    u.Message.Uid,
			Flags:  u.Message.Flags,
		}

		if raw, ok := u.Message.Items[goimap.FetchItem("MODSEQ")]; ok {
			if n, ok := raw.(int64); ok {
				ev.ModSeq = uint64(n)
				ev.HasModSeq = true
			}
		}

		return ev, true

	case *goclient.StatusUpdate:
		if u.Status != nil && strings.HasPrefix(strings.ToUpper(u.Status.Info), "VANISHED") {
			return Event{Kind: EventVanished}, true
		}
		return Event{}, false

	default:
		return Event{}, false
	}
}
