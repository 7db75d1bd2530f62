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
	"github.com/urfave/cli/v2"
	"github.com/vs49688/imappush/ingest"
	"github.com/vs49688/imappush/pump"
)

func DefaultConfig() CliConfig {
	return CliConfig{
		Source:             DefaultIMAPConfig(),
		Dest:               DefaultIMAPConfig(),
		LogLevel:           "info",
		LogFormat:          "text",
		DisplayCount:       25,
		IdleRefreshMinutes: 29,
		PushPollOnConnect:  true,
		DisableDeletions:   false,
	}
}

// Parameters builds the flag set. Any field cfg already carries (e.g. from
// LoadFileConfig, applied via ApplyFileDefaults before this is called)
// becomes that flag's default, so an explicit flag or env var still wins.
func (cfg *CliConfig) Parameters() []cli.Flag {
	def := DefaultConfig().ApplyFileDefaults(*cfg)

	var flags []cli.Flag
	flags = append(flags, cfg.Source.makeIMAPParameters("source", def.Source)...)
	flags = append(flags, cfg.Dest.makeIMAPParameters("dest", def.Dest)...)
	flags = append(flags, []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "logging level",
			EnvVars:     []string{"MAILPUMP_LOG_LEVEL"},
			Destination: &cfg.LogLevel,
			Value:       def.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "logging format (text/json)",
			EnvVars:     []string{"MAILPUMP_LOG_FORMAT"},
			Destination: &cfg.LogFormat,
			Value:       def.LogFormat,
		},
		&cli.StringFlag{
			Name:        "dest-mailbox",
			Usage:       "destination mailbox, overrides the path component of dest-url",
			EnvVars:     []string{"MAILPUMP_DEST_MAILBOX"},
			Destination: &cfg.DestMailbox,
			Value:       def.DestMailbox,
		},
		&cli.IntFlag{
			Name:        "display-count",
			Usage:       "newest messages considered in-window on first sync",
			EnvVars:     []string{"MAILPUMP_DISPLAY_COUNT"},
			Destination: &cfg.DisplayCount,
			Value:       def.DisplayCount,
		},
		&cli.IntFlag{
			Name:        "idle-refresh-minutes",
			Usage:       "server's advertised IDLE refresh interval, in minutes",
			EnvVars:     []string{"MAILPUMP_IDLE_REFRESH_MINUTES"},
			Destination: &cfg.IdleRefreshMinutes,
			Value:       def.IdleRefreshMinutes,
		},
		&cli.BoolFlag{
			Name:        "push-poll-on-connect",
			Usage:       "sync immediately on connect instead of waiting for a push",
			EnvVars:     []string{"MAILPUMP_PUSH_POLL_ON_CONNECT"},
			Destination: &cfg.PushPollOnConnect,
			Value:       def.PushPollOnConnect,
		},
		&cli.StringFlag{
			Name:        "push-state-file",
			Usage:       "file to persist the push cursor in, empty disables persistence",
			EnvVars:     []string{"MAILPUMP_PUSH_STATE_FILE"},
			Destination: &cfg.PushStateFile,
			Value:       def.PushStateFile,
		},
		&cli.BoolFlag{
			Name:        "disable-deletions",
			Usage:       "disable deletions. for debugging only",
			EnvVars:     []string{"MAILPUMP_DISABLE_DELETIONS"},
			Destination: &cfg.DisableDeletions,
			Value:       def.DisableDeletions,
			Hidden:      true,
		},
	}...)

	return flags
}

// BuildPumpConfig resolves both IMAP legs and fills in a pump.Config ready
// for pump.NewFolderPusher. It doesn't set Ingest: that's a shared
// ingest.Client the caller builds separately.
func (cfg *CliConfig) BuildPumpConfig(pumpConfig *pump.Config) error {
	def := DefaultConfig()

	sourceConn, sourceFactory, err := cfg.Source.Resolve()
	if err != nil {
		return err
	}
	pumpConfig.Source = sourceConn
	pumpConfig.SourceFactory = sourceFactory
	pumpConfig.FolderName = sourceConn.Mailbox

	pumpConfig.DestMailbox = cfg.DestMailbox
	pumpConfig.PushStateFile = cfg.PushStateFile
	pumpConfig.DisableDeletions = cfg.DisableDeletions

	pumpConfig.DisplayCount = cfg.DisplayCount
	if pumpConfig.DisplayCount == 0 {
		pumpConfig.DisplayCount = def.DisplayCount
	}

	pumpConfig.IdleRefreshMinutes = cfg.IdleRefreshMinutes
	if pumpConfig.IdleRefreshMinutes == 0 {
		pumpConfig.IdleRefreshMinutes = def.IdleRefreshMinutes
	}

	pumpConfig.PushPollOnConnect = cfg.PushPollOnConnect

	return nil
}

// ResolveDestIngest turns the destination leg into an ingest.Config, ready
// for ingest.NewClient.
func (cfg *CliConfig) ResolveDestIngest() (ingest.Config, error) {
	destConn, destFactory, err := cfg.Dest.Resolve()
	if err != nil {
		return ingest.Config{}, err
	}

	return ingest.Config{
		ConnectionConfig: destConn,
		Factory:          destFactory,
	}, nil
}
