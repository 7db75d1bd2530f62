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

package pump

import (
	"github.com/vs49688/imappush/imap"
	"github.com/vs49688/imappush/ingest"
	"github.com/vs49688/imappush/push"
	"github.com/vs49688/imappush/receiver"
)

// Config describes one source folder pushed into one destination mailbox.
// Unlike the teacher's Config, there's no per-pump DoneChan/StopChan pair:
// shutdown goes through push.Controller, which already has its own
// Stop()/Done() plumbing.
type Config struct {
	Source        imap.ConnectionConfig
	SourceFactory imap.Factory

	// FolderName is both Source.Mailbox and the name push.Receiver calls
	// are addressed with.
	FolderName string

	// Ingest delivers synced messages onward; owned by the caller so it
	// can be shared across several FolderPushers (see multipump).
	Ingest      ingest.Client
	DestMailbox string

	// PushStateFile persists the UIDNEXT cursor across restarts; empty
	// disables persistence (every restart resyncs from UID 1).
	PushStateFile string

	// DisableDeletions skips the post-delivery UID STORE \Deleted +
	// EXPUNGE step, leaving delivered messages in place. For debugging.
	DisableDeletions bool

	push.FolderConfig
}

// FolderPusher wires one push.Controller/push.Loop to a live source
// connection and a receiver.FolderReceiver. It replaces the teacher's
// MailPump, which drove a continuously-fetching receiver.MailReceiver
// instead of an IDLE-parked push.Loop.
type FolderPusher struct {
	name       string
	client     imap.Client
	controller *push.Controller
	receiver   *receiver.FolderReceiver
}
