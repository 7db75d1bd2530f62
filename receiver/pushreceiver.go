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
	"context"
	"os"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/mail"
	log "github.com/sirupsen/logrus"
	imap2 "github.com/vs49688/imappush/imap"
	"github.com/vs49688/imappush/ingest"
	"github.com/vs49688/imappush/push"
)

// FolderReceiver is the concrete push.Receiver this repo ships: it turns a
// sync request into a UID-windowed fetch against the source mailbox,
// forwards each message to a destination ingest.Client, and persists the
// new cursor to a plain state file. It plays the role the teacher's
// MailReceiver played (fetch + ack + delete against an imap2.Client), but
// is driven by push.Loop's sync decisions instead of running its own IDLE.
type FolderReceiver struct {
	name             string
	client           imap2.Client
	ingest           ingest.Client
	destMbox         string
	stateFile        string
	disableDeletions bool
	ctx              context.Context

	rfc822Section *imap.BodySectionName

	mu    sync.Mutex
	state push.State
}

// FolderReceiverConfig is everything FolderReceiver needs that isn't
// derivable from the mailbox itself.
type FolderReceiverConfig struct {
	// Name is the folder name passed back to push.Receiver calls.
	Name string

	// Client is the same imap2.Client the push.Folder wraps; SyncFolder
	// issues UID FETCH/ack traffic over it between IDLEs.
	Client imap2.Client

	// Ingest delivers a fetched message onward, e.g. by APPENDing it to a
	// destination mailbox.
	Ingest ingest.Client

	DestMailbox string

	// StateFile persists the push.State cursor across restarts. Empty
	// disables persistence (every restart resyncs from UID 1).
	StateFile string

	// DisableDeletions skips the post-delivery UID STORE \Deleted +
	// EXPUNGE step, leaving delivered messages in place. For debugging.
	DisableDeletions bool

	Context context.Context
}

// NewFolderReceiver builds a FolderReceiver, reading any existing persisted
// cursor from cfg.StateFile.
func NewFolderReceiver(cfg FolderReceiverConfig) *FolderReceiver {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	rfc822Section, err := imap.ParseBodySectionName(imap.FetchRFC822)
	if err != nil {
		panic(err)
	}

	fr := &FolderReceiver{
		name:             cfg.Name,
		client:           cfg.Client,
		ingest:           cfg.Ingest,
		destMbox:         cfg.DestMailbox,
		stateFile:        cfg.StateFile,
		disableDeletions: cfg.DisableDeletions,
		ctx:              ctx,
		rfc822Section:    rfc822Section,
	}
	fr.state = push.ParseState(fr.readStateFile())
	return fr
}

func (fr *FolderReceiver) readStateFile() string {
	if fr.stateFile == "" {
		return ""
	}
	b, err := os.ReadFile(fr.stateFile)
	if err != nil {
		return ""
	}
	return string(b)
}

func (fr *FolderReceiver) writeStateFile(s push.State) {
	if fr.stateFile == "" {
		return
	}
	if err := os.WriteFile(fr.stateFile, []byte(s.String()), 0o600); err != nil {
		log.WithError(err).WithField("folder", fr.name).Warn("receiver_push_state_write_failed")
	}
}

// GetPushState implements push.Receiver: it's read at the top of every
// push.Loop iteration.
func (fr *FolderReceiver) GetPushState(name string) string {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.state.String()
}

func (fr *FolderReceiver) setState(s push.State) {
	fr.mu.Lock()
	cur := fr.state
	if s.UidNext > cur.UidNext {
		fr.state = s
	}
	next := fr.state
	fr.mu.Unlock()
	fr.writeStateFile(next)
}

// subjectOf parses a fetched message's RFC822 body far enough to log a
// Subject line; it never blocks delivery on a parse failure. It parses a
// copy of a *bytes.Buffer literal's unread bytes, so the literal handed to
// ingest stays unread; any other literal type yields "".
func subjectOf(msg *imap.Message, section *imap.BodySectionName) string {
	buf, ok := msg.GetBody(section).(*bytes.Buffer)
	if !ok {
		return ""
	}

	r, err := mail.CreateReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return ""
	}

	subject, err := r.Header.Subject()
	if err != nil {
		return ""
	}

	return subject
}

// SyncFolder fetches every message whose UID is at or above the persisted
// cursor and forwards each to the destination ingest.Client, the
// push-triggered equivalent of the teacher's continuous doFetch/doDelete
// loop. The cursor advances to the mailbox's UIDNEXT observed at fetch
// time, same invariant push.Loop itself enforces on oldUidNext.
func (fr *FolderReceiver) SyncFolder(name string) {
	mb := fr.client.Mailbox()
	if mb == nil {
		log.WithField("folder", name).Warn("receiver_sync_no_mailbox")
		return
	}

	fr.mu.Lock()
	cursor := fr.state.UidNext
	fr.mu.Unlock()

	var startUID uint32 = 1
	if cursor > 0 {
		startUID = uint32(cursor)
	}

	if mb.UidNext == 0 || mb.UidNext <= startUID {
		log.WithFields(log.Fields{"folder": name, "start_uid": startUID, "uidnext": mb.UidNext}).Trace("receiver_sync_nothing_new")
		fr.setState(push.State{UidNext: int64(mb.UidNext)})
		return
	}

	seqset := &imap.SeqSet{}
	seqset.AddRange(startUID, mb.UidNext-1)

	ch := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- fr.client.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, imap.FetchRFC822}, ch)
	}()

	uids, messages := readMessages(ch)

	if err := <-done; err != nil {
		log.WithError(err).WithField("folder", name).Error("receiver_sync_fetch_failed")
	}

	ackCh := make(chan ingest.Response, len(uids))
	var delivered []uint32
	for _, uid := range uids {
		msg := messages[uid]
		log.WithFields(log.Fields{
			"folder":  name,
			"uid":     msg.Uid,
			"subject": subjectOf(msg, fr.rfc822Section),
		}).Info("receiver_sync_message")

		if err := fr.ingest.IngestMessage(fr.destMbox, msg, ackCh); err != nil {
			log.WithError(err).WithFields(log.Fields{"folder": name, "uid": msg.Uid}).Error("receiver_sync_ingest_enqueue_failed")
			continue
		}
		delivered = append(delivered, uid)
	}

	var toDelete []uint32
	for range delivered {
		r := <-ackCh
		if r.Error != nil {
			log.WithError(r.Error).WithFields(log.Fields{"folder": name, "uid": r.UID}).Error("receiver_sync_ingest_failed")
			continue
		}
		toDelete = append(toDelete, r.UID)
	}

	if !fr.disableDeletions && len(toDelete) > 0 {
		fr.deleteMessages(name, toDelete)
	}

	fr.setState(push.State{UidNext: int64(mb.UidNext)})
}

// deleteMessages marks every UID \Deleted and expunges, the same
// post-ack cleanup the teacher's doDelete performed, just addressed by a
// flat UID list instead of a messageState map.
func (fr *FolderReceiver) deleteMessages(name string, uids []uint32) {
	deleteSet := &imap.SeqSet{}
	for _, uid := range uids {
		deleteSet.AddNum(uid)
	}

	ch := make(chan *imap.Message)
	done := make(chan error, 1)
	go func() {
		done <- fr.client.UidStore(deleteSet, imap.FormatFlagsOp(imap.AddFlags, false), []interface{}{imap.DeletedFlag}, ch)
	}()
	for range ch {
	}

	if err := <-done; err != nil {
		log.WithError(err).WithField("folder", name).Error("receiver_sync_delete_failed")
		return
	}

	if err := fr.client.Expunge(nil); err != nil {
		log.WithError(err).WithField("folder", name).Error("receiver_sync_expunge_failed")
	}
}

// MessageFlagsChanged applies a QRESYNC flag update. This repo keeps no
// local map from a source UID to its destination copy, so there's nothing
// to apply it to; it's logged so an operator can see push is working
// without a full resync.
func (fr *FolderReceiver) MessageFlagsChanged(name string, change push.FlagChange) {
	log.WithFields(log.Fields{"folder": name, "uid": change.UID, "flags": change.Flags}).Info("receiver_flags_changed")
}

func (fr *FolderReceiver) HighestModSeqChanged(name string, modseq uint64) {
	log.WithFields(log.Fields{"folder": name, "modseq": modseq}).Trace("receiver_modseq_changed")
}

func (fr *FolderReceiver) SetPushActive(name string, active bool) {
	log.WithFields(log.Fields{"folder": name, "active": active}).Info("receiver_push_active")
}

func (fr *FolderReceiver) PushError(msg string, cause error) {
	log.WithError(cause).WithField("folder", fr.name).Warn(msg)
}

func (fr *FolderReceiver) AuthenticationFailed() {
	log.WithField("folder", fr.name).Error("receiver_authentication_failed")
}

// Sleep ignores the wake-lock: there's no real power-management
// collaborator outside Android, and push.WakeLock's default implementation
// is already a ref-counted no-op (see push.NewWakeLock).
func (fr *FolderReceiver) Sleep(wake push.WakeLock, d time.Duration) {
	time.Sleep(d)
}

func (fr *FolderReceiver) GetContext() context.Context {
	return fr.ctx
}
