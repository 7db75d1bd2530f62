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
	"strconv"
	"strings"
)

// State is the single persisted mailbox cursor, serialized as the one
// line "uidNext=<N>". Parsing a missing or garbled state yields -1.
type State struct {
	UidNext int64
}

// UnknownState is the zero value of an unread/unparseable push state.
var UnknownState = State{UidNext: -1}

// ParseState is total: no parse error escapes it.
func ParseState(s string) State {
	for _, line := range strings.Split(s, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || key != "uidNext" {
			continue
		}

		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return UnknownState
		}

		return State{UidNext: n}
	}

	return UnknownState
}

func (s State) String() string {
	return fmt.Sprintf("uidNext=%d", s.UidNext)
}
