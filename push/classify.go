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

// EventKind identifies the shape of an already-parsed untagged response,
// i.e. what an adapter like IMAPFolder turned a wire-level update into.
type EventKind int

const (
	EventIgnore EventKind = iota
	EventIdleAccepted
	EventExists
	EventExpunge
	EventFetch
	EventVanished
)

// Event is the parsed representation ResponseClassifier works on. The
// wire codec that produces these is assumed to exist (see spec non-goals);
// IMAPFolder is this repo's one adapter from go-imap's client.Update.
type Event struct {
	Kind EventKind

	// SeqNum is the message sequence number for Expunge/Fetch.
	SeqNum uint32

	// MessageCount is the new total message count, for Exists.
	MessageCount uint32

	// UID/Flags/ModSeq are populated for Fetch when available.
	UID       uint32
	Flags     []string
	ModSeq    uint64
	HasModSeq bool

	// VanishedUIDs are logged for debugging but not otherwise consumed.
	VanishedUIDs []uint32
}

// Disposition is what the loop does with a classified Event before it's
// ever decided whether it triggers a sync.
type Disposition int

const (
	DispositionIgnore Disposition = iota
	DispositionBuffer
	DispositionIdleAccepted
)

// Classify implements the table in spec.md §4.3: a continuation request
// is IdleAccepted, EXISTS/EXPUNGE/FETCH/VANISHED are buffered, everything
// else is ignored.
func Classify(ev Event) Disposition {
	switch ev.Kind {
	case EventIdleAccepted:
		return DispositionIdleAccepted
	case EventExists, EventExpunge, EventFetch, EventVanished:
		return DispositionBuffer
	default:
		return DispositionIgnore
	}
}

// Decision is the outcome of applying the sync-decision function to one
// buffered Event.
type Decision struct {
	Sync       bool
	FlagChange *FlagChange
	ModSeq     uint64
	HasModSeq  bool
}

// SmallestSeqNum is the lowest sequence number the host still cares about,
// given how many of the newest messages it displays.
func SmallestSeqNum(messageCount uint32, displayCount int) uint32 {
	n := int64(messageCount) - int64(displayCount) + 1
	if n < 1 {
		n = 1
	}
	return uint32(n)
}

// Decide applies the §4.3 sync-decision function to one buffered Event.
func Decide(ev Event, messageCount uint32, displayCount int, qresyncSupported bool) Decision {
	smallest := SmallestSeqNum(messageCount, displayCount)

	switch ev.Kind {
	case EventExpunge:
		return Decision{Sync: ev.SeqNum >= smallest}

	case EventFetch:
		if ev.SeqNum < smallest {
			return Decision{}
		}
		if !qresyncSupported {
			return Decision{Sync: true}
		}
		d := Decision{FlagChange: &FlagChange{UID: ev.UID, Flags: ev.Flags}}
		if ev.HasModSeq {
			d.ModSeq = ev.ModSeq
			d.HasModSeq = true
		}
		return d

	case EventExists:
		return Decision{Sync: true}

	case EventVanished:
		return Decision{Sync: true}

	default:
		return Decision{}
	}
}
