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
	"github.com/emersion/go-sasl"
	"golang.org/x/oauth2"
)

type plainAuthenticator struct {
	username string
	password string
}

// NewNormalAuthenticator performs a plain IMAP LOGIN.
func NewNormalAuthenticator(username string, password string) Authenticator {
	return &plainAuthenticator{username: username, password: password}
}

func (a *plainAuthenticator) Authenticate(c Authenticatable) error {
	return c.Login(a.username, a.password)
}

type saslAuthenticator struct {
	client sasl.Client
}

// NewSASLAuthenticator drives an arbitrary SASL mechanism via AUTHENTICATE.
func NewSASLAuthenticator(client sasl.Client) Authenticator {
	return &saslAuthenticator{client: client}
}

func (a *saslAuthenticator) Authenticate(c Authenticatable) error {
	return c.Authenticate(a.client)
}

type tokenSASLFunc func(token string) sasl.Client

type oauthTokenAuthenticator struct {
	username string
	source   oauth2.TokenSource
	build    tokenSASLFunc
}

func (a *oauthTokenAuthenticator) Authenticate(c Authenticatable) error {
	tok, err := a.source.Token()
	if err != nil {
		return err
	}

	return c.Authenticate(a.build(tok.AccessToken))
}

// NewOAuthBearerAuthenticator authenticates via SASL OAUTHBEARER (RFC 7628),
// fetching a fresh access token from source on every call so refresh tokens
// are honoured transparently.
func NewOAuthBearerAuthenticator(username string, source oauth2.TokenSource) Authenticator {
	return &oauthTokenAuthenticator{
		username: username,
		source:   source,
		build: func(token string) sasl.Client {
			return sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{Username: username, Token: token})
		},
	}
}

// NewXOAuth2Authenticator authenticates via the older, Gmail-style XOAUTH2
// SASL mechanism.
func NewXOAuth2Authenticator(username string, source oauth2.TokenSource) Authenticator {
	return &oauthTokenAuthenticator{
		username: username,
		source:   source,
		build: func(token string) sasl.Client {
			return sasl.NewXoauth2Client(username, token)
		},
	}
}
