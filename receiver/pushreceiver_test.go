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

package receiver

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"

	imap2 "github.com/vs49688/imappush/imap"
	"github.com/vs49688/imappush/imap/client"
	"github.com/vs49688/imappush/ingest"
	"github.com/vs49688/imappush/internal"
	"github.com/vs49688/imappush/push"
)

// fakeIngestClient is a hand-written ingest.Client recording every delivered
// message and acking it immediately, the same style push's fakeReceiver
// favours over a generated mock.
type fakeIngestClient struct {
	mu        sync.Mutex
	delivered []*imap.Message
	mboxes    []string
	failUID   uint32
}

func (f *fakeIngestClient) IngestMessage(mbox string, msg *imap.Message, ch chan<- ingest.Response) error {
	f.mu.Lock()
	f.delivered = append(f.delivered, msg)
	f.mboxes = append(f.mboxes, mbox)
	f.mu.Unlock()

	if f.failUID != 0 && msg.Uid == f.failUID {
		ch <- ingest.Response{UID: msg.Uid, Error: assert.AnError}
		return nil
	}

	ch <- ingest.Response{UID: msg.Uid, Error: nil}
	return nil
}

func (f *fakeIngestClient) Close() {}

func (f *fakeIngestClient) uids() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, len(f.delivered))
	for i, m := range f.delivered {
		out[i] = m.Uid
	}
	return out
}

// appendTestMessage dials its own short-lived connection to append a single
// message into the server's INBOX, mirroring ingest_test.go's approach of
// driving the in-process server only through real IMAP traffic rather than
// poking the backend's internal state directly.
func appendTestMessage(t *testing.T, addr string, messageID string) {
	hdr := message.Header{}
	hdr.Add("From", "from@example.com")
	hdr.Add("To", "to@example.com")
	hdr.Add("Subject", "Test Email "+messageID)
	hdr.Add("Date", "Wed, 11 May 2016 14:31:59 +0000")
	hdr.Add("Content-Type", "text/plain")
	hdr.Add("Message-ID", messageID)

	msg, err := message.New(hdr, strings.NewReader("body of "+messageID))
	assert.NoError(t, err)

	bb := new(bytes.Buffer)
	assert.NoError(t, msg.WriteTo(bb))

	c, err := (client.Factory{}).NewClient(&imap2.ClientConfig{
		ConnectionConfig: imap2.ConnectionConfig{
			HostPort: addr,
			Auth:     imap2.NewNormalAuthenticator("username", "password"),
			Mailbox:  "INBOX",
		},
	})
	assert.NoError(t, err)
	defer c.Logout()

	assert.NoError(t, c.Append("INBOX", nil, time.Now(), imap2.Literal(bb)))
}

// dialReceiverClient opens the connection FolderReceiver itself will drive,
// separate from the one(s) used to seed the mailbox, so its initial
// Mailbox() status comes from a fresh, authoritative SELECT response.
func dialReceiverClient(t *testing.T, addr string) imap2.Client {
	c, err := (client.Factory{}).NewClient(&imap2.ClientConfig{
		ConnectionConfig: imap2.ConnectionConfig{
			HostPort: addr,
			Auth:     imap2.NewNormalAuthenticator("username", "password"),
			Mailbox:  "INBOX",
		},
	})
	assert.NoError(t, err)
	t.Cleanup(func() { _ = c.Logout() })
	return c
}

func TestSyncFolderDeliversAndAdvancesCursor(t *testing.T) {
	_, addr, mailbox := internal.BuildTestIMAPServer(t)

	appendTestMessage(t, addr, "one@example.com")
	appendTestMessage(t, addr, "two@example.com")
	assert.Len(t, mailbox.Messages, 2)

	rcvClient := dialReceiverClient(t, addr)
	ing := &fakeIngestClient{}

	stateFile := filepath.Join(t.TempDir(), "state")
	fr := NewFolderReceiver(FolderReceiverConfig{
		Name:        "INBOX",
		Client:      rcvClient,
		Ingest:      ing,
		DestMailbox: "INBOX",
		StateFile:   stateFile,
	})

	fr.SyncFolder("INBOX")

	assert.Equal(t, []uint32{1, 2}, ing.uids())
	assert.Equal(t, []string{"INBOX", "INBOX"}, ing.mboxes)

	// Both messages were acked clean, so the default (deletions enabled)
	// behaviour deletes and expunges them from the source mailbox.
	assert.Empty(t, mailbox.Messages)

	assert.Equal(t, "uidNext=3", fr.GetPushState("INBOX"))

	// The cursor is persisted across a fresh FolderReceiver reading the
	// same state file.
	fr2 := NewFolderReceiver(FolderReceiverConfig{
		Name:        "INBOX",
		Client:      rcvClient,
		Ingest:      ing,
		DestMailbox: "INBOX",
		StateFile:   stateFile,
	})
	assert.Equal(t, "uidNext=3", fr2.GetPushState("INBOX"))
}

func TestSyncFolderNothingNewIsNoop(t *testing.T) {
	_, addr, mailbox := internal.BuildTestIMAPServer(t)
	appendTestMessage(t, addr, "one@example.com")
	assert.Len(t, mailbox.Messages, 1)

	rcvClient := dialReceiverClient(t, addr)
	ing := &fakeIngestClient{}

	fr := NewFolderReceiver(FolderReceiverConfig{
		Name:        "INBOX",
		Client:      rcvClient,
		Ingest:      ing,
		DestMailbox: "INBOX",
		// State already caught up to the mailbox's current UIDNEXT(2).
		StateFile: "",
	})
	// Force the cursor forward without a state file round-trip, simulating
	// a receiver that's already synced.
	fr.setState(push.State{UidNext: 2})

	fr.SyncFolder("INBOX")

	assert.Empty(t, ing.uids())
	// Nothing delivered, so nothing deleted either.
	assert.Len(t, mailbox.Messages, 1)
}

func TestSyncFolderDisableDeletionsLeavesMessages(t *testing.T) {
	_, addr, mailbox := internal.BuildTestIMAPServer(t)
	appendTestMessage(t, addr, "one@example.com")

	rcvClient := dialReceiverClient(t, addr)
	ing := &fakeIngestClient{}

	fr := NewFolderReceiver(FolderReceiverConfig{
		Name:             "INBOX",
		Client:           rcvClient,
		Ingest:           ing,
		DestMailbox:      "INBOX",
		DisableDeletions: true,
	})

	fr.SyncFolder("INBOX")

	assert.Equal(t, []uint32{1}, ing.uids())
	assert.Len(t, mailbox.Messages, 1)
}

func TestSyncFolderFailedAckIsNotDeleted(t *testing.T) {
	_, addr, mailbox := internal.BuildTestIMAPServer(t)
	appendTestMessage(t, addr, "one@example.com")
	appendTestMessage(t, addr, "two@example.com")

	rcvClient := dialReceiverClient(t, addr)
	ing := &fakeIngestClient{failUID: 1}

	fr := NewFolderReceiver(FolderReceiverConfig{
		Name:        "INBOX",
		Client:      rcvClient,
		Ingest:      ing,
		DestMailbox: "INBOX",
	})

	fr.SyncFolder("INBOX")

	assert.Equal(t, []uint32{1, 2}, ing.uids())
	// UID 1's ack carried an error, so only UID 2 is deleted.
	assert.Len(t, mailbox.Messages, 1)
	assert.Equal(t, uint32(1), mailbox.Messages[0].Uid)

	// The cursor still advances: SyncFolder tracks UIDNEXT, not individual
	// delivery success.
	assert.Equal(t, "uidNext=3", fr.GetPushState("INBOX"))
}

func TestGetPushStateDefaultsToUnknown(t *testing.T) {
	_, addr, _ := internal.BuildTestIMAPServer(t)
	rcvClient := dialReceiverClient(t, addr)

	fr := NewFolderReceiver(FolderReceiverConfig{
		Name:        "INBOX",
		Client:      rcvClient,
		Ingest:      &fakeIngestClient{},
		DestMailbox: "INBOX",
	})

	assert.Equal(t, push.UnknownState.String(), fr.GetPushState("INBOX"))
}
