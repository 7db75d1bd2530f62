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
	"os"

	"github.com/pelletier/go-toml/v2"
)

// LoadFileConfig reads a TOML file of the same shape as CliConfig. It's
// meant to seed flag defaults for hosts that prefer a static file over
// passing every secret as an env var, not to replace the CLI entirely:
// whatever a flag or its env var sets still takes precedence, since the
// file is only consulted while building flag defaults.
func LoadFileConfig(path string) (CliConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CliConfig{}, err
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return CliConfig{}, err
	}

	return cfg, nil
}

// ApplyFileDefaults overlays every non-zero field of file onto cfg, then
// returns cfg; Parameters() uses the result as its flag defaults. A
// zero field in file means "not set in the TOML", not "explicitly
// cleared" -- the file format has no way to express the latter.
func (cfg CliConfig) ApplyFileDefaults(file CliConfig) CliConfig {
	applyIMAPDefaults(&cfg.Source, file.Source)
	applyIMAPDefaults(&cfg.Dest, file.Dest)

	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	if file.DestMailbox != "" {
		cfg.DestMailbox = file.DestMailbox
	}
	if file.DisplayCount != 0 {
		cfg.DisplayCount = file.DisplayCount
	}
	if file.IdleRefreshMinutes != 0 {
		cfg.IdleRefreshMinutes = file.IdleRefreshMinutes
	}
	if file.PushStateFile != "" {
		cfg.PushStateFile = file.PushStateFile
	}
	cfg.PushPollOnConnect = cfg.PushPollOnConnect || file.PushPollOnConnect
	cfg.DisableDeletions = cfg.DisableDeletions || file.DisableDeletions

	return cfg
}

func applyIMAPDefaults(dst *IMAPConfig, src IMAPConfig) {
	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.AuthMethod != "" {
		dst.AuthMethod = src.AuthMethod
	}
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.Password != "" {
		dst.Password = src.Password
	}
	if src.PasswordFile != "" {
		dst.PasswordFile = src.PasswordFile
	}
	if src.SystemdCredential != "" {
		dst.SystemdCredential = src.SystemdCredential
	}
	if src.Transport != "" {
		dst.Transport = src.Transport
	}
	dst.TLSSkipVerify = dst.TLSSkipVerify || src.TLSSkipVerify
	dst.Debug = dst.Debug || src.Debug
	if src.OAuth2.Provider != "" {
		dst.OAuth2.Provider = src.OAuth2.Provider
	}
}
