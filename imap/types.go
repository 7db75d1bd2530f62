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

package imap

import (
	"crypto/tls"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
)

// Client is the narrow surface of *client.Client our callers need. It's the
// seam that lets persistentclient.PersistentIMAPClient stand in for a live socket.
type Client interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)

	Idle(stop <-chan struct{}, opts *client.IdleOptions) error

	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error

	// UidFetch is Fetch addressed by UID rather than sequence number, used
	// to fetch everything above a known cursor after a push-triggered sync.
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error

	Expunge(ch chan uint32) error

	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error

	Append(mbox string, flags []string, date time.Time, msg imap.Literal) error

	Mailbox() *imap.MailboxStatus

	// Support reports whether the server advertised a capability, e.g.
	// "IDLE" or "QRESYNC".
	Support(name string) (bool, error)

	// SetReadTimeout adjusts the socket read deadline used for every
	// subsequent command, including a parked IDLE.
	SetReadTimeout(d time.Duration)

	Logout() error

	LoggedOut() <-chan struct{}
}

// ConnectionConfig describes how to reach and authenticate against a single
// IMAP account/mailbox. It carries no transport-specific state, so it's
// comparable and safe to log.
type ConnectionConfig struct {
	HostPort  string
	Auth      Authenticator
	Mailbox   string
	TLS       bool
	TLSConfig *tls.Config
	Debug     bool
}

// ClientConfig is ConnectionConfig plus the one thing a Factory needs that
// isn't part of the account's identity: where to deliver unilateral/untagged
// server updates.
type ClientConfig struct {
	ConnectionConfig
	Updates chan<- client.Update
}

// Factory builds a Client from a ClientConfig. There are two
// implementations: client.Factory dials a fresh *client.Client per call,
// persistentclient.Factory hands back a self-reconnecting facade.
type Factory interface {
	NewClient(cfg *ClientConfig) (Client, error)
}

// Authenticatable is the subset of *client.Client an Authenticator needs to
// complete a login. It exists so authenticators can be unit-tested against
// a mock instead of a real socket.
type Authenticatable interface {
	Login(username, password string) error
	Authenticate(auth sasl.Client) error
}

// Authenticator performs whatever login/auth exchange a ConnectionConfig
// was configured with.
type Authenticator interface {
	Authenticate(c Authenticatable) error
}

type Message = imap.Message
type SeqSet = imap.SeqSet
type StoreItem = imap.StoreItem
type MailboxStatus = imap.MailboxStatus
type FetchItem = imap.FetchItem
type Literal = imap.Literal
