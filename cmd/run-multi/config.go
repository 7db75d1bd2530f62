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

package run_multi

import (
	"io/ioutil"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/urfave/cli/v2"
	"github.com/vs49688/imappush/cmd/config"
	"github.com/vs49688/imappush/ingest"
	"github.com/vs49688/imappush/pump"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultDisplayCount       = 25
	DefaultIdleRefreshMinutes = 29
)

// Source is one folder pushed into the shared destination account.
type Source struct {
	Connection    config.IMAPConfig `yaml:"connection"`
	TargetMailbox string            `yaml:"target_mailbox"`

	DisplayCount       int    `yaml:"display_count,omitempty"`
	IdleRefreshMinutes int    `yaml:"idle_refresh_minutes,omitempty"`
	PushPollOnConnect  bool   `yaml:"push_poll_on_connect,omitempty"`
	PushStateFile      string `yaml:"push_state_file,omitempty"`
	DisableDeletions   bool   `yaml:"disable_deletions,omitempty"`
}

// UnmarshalYAML seeds Connection with config.DefaultIMAPConfig() before
// decoding, so fields a source omits keep their defaults.
func (src *Source) UnmarshalYAML(value *yaml.Node) error {
	type rawSource Source
	raw := rawSource{Connection: config.DefaultIMAPConfig()}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*src = Source(raw)
	return nil
}

func (src *Source) Resolve() (pump.Config, error) {
	connConfig, factory, err := src.Connection.Resolve()
	if err != nil {
		return pump.Config{}, err
	}

	cfg := pump.Config{
		Source:           connConfig,
		SourceFactory:    factory,
		FolderName:       connConfig.Mailbox,
		DestMailbox:      src.TargetMailbox,
		PushStateFile:    src.PushStateFile,
		DisableDeletions: src.DisableDeletions,
	}

	cfg.DisplayCount = src.DisplayCount
	if cfg.DisplayCount == 0 {
		cfg.DisplayCount = DefaultDisplayCount
	}

	cfg.IdleRefreshMinutes = src.IdleRefreshMinutes
	if cfg.IdleRefreshMinutes == 0 {
		cfg.IdleRefreshMinutes = DefaultIdleRefreshMinutes
	}

	cfg.PushPollOnConnect = src.PushPollOnConnect

	return cfg, nil
}

type Configuration struct {
	ConfigPath string `yaml:"-"`

	Destination config.IMAPConfig  `yaml:"destination,omitempty"`
	Sources     map[string]*Source `yaml:"sources,omitempty"`
	LogLevel    string             `yaml:"log_level,omitempty"`
	LogFormat   string             `yaml:"log_format,omitempty"`

	ResolvedDestination ingest.Config `yaml:"-"`
	ResolvedSources     []pump.Config `yaml:"-"`
	Logger              *log.Logger   `yaml:"-"`
}

func DefaultConfig() Configuration {
	return Configuration{
		Destination: config.DefaultIMAPConfig(),
		ConfigPath:  "config.yaml",
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		Logger:      log.StandardLogger(),
	}
}

func (cfg *Configuration) Parameters() []cli.Flag {
	def := DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to configuration file, or '-' to read from stdin",
			Value:       def.ConfigPath,
			Destination: &cfg.ConfigPath,
		},
	}
}

func (cfg *Configuration) Resolve() error {
	var err error
	var raw []byte

	if cfg.ConfigPath == "" || cfg.ConfigPath == "-" {
		raw, err = ioutil.ReadAll(os.Stdin)
	} else {
		raw, err = ioutil.ReadFile(cfg.ConfigPath)
	}

	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return err
	}

	destConfig, factory, err := cfg.Destination.Resolve()
	if err != nil {
		return err
	}
	cfg.ResolvedDestination = ingest.Config{
		ConnectionConfig: destConfig,
		Factory:          factory,
	}

	cfg.ResolvedSources = make([]pump.Config, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		rs, err := src.Resolve()
		if err != nil {
			return err
		}

		cfg.ResolvedSources = append(cfg.ResolvedSources, rs)
	}

	return nil
}
