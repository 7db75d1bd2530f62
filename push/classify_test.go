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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		kind EventKind
		want Disposition
	}{
		{"idle accepted", EventIdleAccepted, DispositionIdleAccepted},
		{"exists", EventExists, DispositionBuffer},
		{"expunge", EventExpunge, DispositionBuffer},
		{"fetch", EventFetch, DispositionBuffer},
		{"vanished", EventVanished, DispositionBuffer},
		{"ignore", EventIgnore, DispositionIgnore},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Classify(Event{Kind: c.kind}))
		})
	}
}

func TestSmallestSeqNum(t *testing.T) {
	assert.Equal(t, uint32(1), SmallestSeqNum(10, 25))
	assert.Equal(t, uint32(1), SmallestSeqNum(25, 25))
	assert.Equal(t, uint32(76), SmallestSeqNum(100, 25))
}

func TestDecideExpunge(t *testing.T) {
	// messageCount=100, displayCount=25 -> smallest in-window seq is 76.
	assert.Equal(t, Decision{Sync: true}, Decide(Event{Kind: EventExpunge, SeqNum: 80}, 100, 25, false))
	assert.Equal(t, Decision{Sync: false}, Decide(Event{Kind: EventExpunge, SeqNum: 50}, 100, 25, false))
}

func TestDecideExistsAlwaysSyncs(t *testing.T) {
	assert.Equal(t, Decision{Sync: true}, Decide(Event{Kind: EventExists}, 100, 25, true))
	assert.Equal(t, Decision{Sync: true}, Decide(Event{Kind: EventExists}, 100, 25, false))
}

func TestDecideVanishedAlwaysSyncs(t *testing.T) {
	assert.Equal(t, Decision{Sync: true}, Decide(Event{Kind: EventVanished}, 100, 25, true))
}

func TestDecideFetchOutsideWindowIgnored(t *testing.T) {
	d := Decide(Event{Kind: EventFetch, SeqNum: 1}, 100, 25, true)
	assert.Equal(t, Decision{}, d)
}

func TestDecideFetchWithoutQresyncForcesFullSync(t *testing.T) {
	d := Decide(Event{Kind: EventFetch, SeqNum: 80}, 100, 25, false)
	assert.True(t, d.Sync)
	assert.Nil(t, d.FlagChange)
}

func TestDecideFetchWithQresyncAppliesFlagsOnly(t *testing.T) {
	d := Decide(Event{Kind: EventFetch, SeqNum: 80, UID: 42, Flags: []string{"\\Seen"}}, 100, 25, true)
	assert.False(t, d.Sync)
	assert.Equal(t, &FlagChange{UID: 42, Flags: []string{"\\Seen"}}, d.FlagChange)
	assert.False(t, d.HasModSeq)
}

func TestDecideFetchWithModSeq(t *testing.T) {
	d := Decide(Event{Kind: EventFetch, SeqNum: 80, UID: 42, ModSeq: 7, HasModSeq: true}, 100, 25, true)
	assert.True(t, d.HasModSeq)
	assert.Equal(t, uint64(7), d.ModSeq)
}
