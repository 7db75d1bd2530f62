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

package config

import (
	"errors"
)

var (
	errInvalidScheme = errors.New("invalid uri scheme")
)

type IMAPConfig struct {
	URL          string `json:"url" toml:"url" yaml:"url"`
	AuthMethod   string `json:"auth_method" toml:"auth_method" yaml:"auth_method"`
	Username     string `json:"username" toml:"username" yaml:"username"`
	Password     string `json:"password,omitempty" toml:"password,omitempty" yaml:"password,omitempty"`
	PasswordFile string `json:"password_file" toml:"password_file" yaml:"password_file,omitempty"`

	// SystemdCredential names a credential loaded via LoadCredential=,
	// read from $CREDENTIALS_DIRECTORY/<name>. Takes precedence over
	// Password/PasswordFile when set.
	SystemdCredential string `json:"systemd_credential" toml:"systemd_credential" yaml:"systemd_credential,omitempty"`

	TLSSkipVerify bool   `json:"tls_skip_verify" toml:"tls_skip_verify" yaml:"tls_skip_verify,omitempty"`
	Transport     string `json:"transport" toml:"transport" yaml:"transport,omitempty"`
	Debug         bool   `json:"debug" toml:"debug" yaml:"debug,omitempty"`

	OAuth2 OAuth2Config `json:"oauth2" toml:"oauth2" yaml:"oauth2,omitempty"`
}

type CliConfig struct {
	Source IMAPConfig `json:"source" toml:"source"`
	Dest   IMAPConfig `json:"dest" toml:"dest"`

	LogLevel  string `json:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" toml:"log_format"`

	// DestMailbox overrides the destination account's own mailbox (the
	// path component of Dest.URL) as the APPEND target. Empty uses the
	// latter.
	DestMailbox string `json:"dest_mailbox" toml:"dest_mailbox"`

	// DisplayCount bounds how many of the newest messages the first sync
	// after connecting considers in-window.
	DisplayCount int `json:"display_count" toml:"display_count"`

	// IdleRefreshMinutes is the server's advertised IDLE refresh interval.
	IdleRefreshMinutes int `json:"idle_refresh_minutes" toml:"idle_refresh_minutes"`

	// PushPollOnConnect forces an immediate sync the first time a folder
	// is opened, rather than waiting for the first push notification.
	PushPollOnConnect bool `json:"push_poll_on_connect" toml:"push_poll_on_connect"`

	// PushStateFile persists the UIDNEXT cursor across restarts. Empty
	// disables persistence.
	PushStateFile string `json:"push_state_file" toml:"push_state_file"`

	// DisableDeletions skips the post-delivery UID STORE \Deleted +
	// EXPUNGE step. For debugging.
	DisableDeletions bool `json:"disable_deletions" toml:"disable_deletions"`
}
