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
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/vs49688/imappush/cmd/config/obscure"
)

var oauthProviderGoogle = oauth2.Config{
	ClientID:     "684151813510-c11bifk1po8voa90cgr28gob7dldv6ou.apps.googleusercontent.com",
	ClientSecret: obscure.MustReveal("dyagDWwZEIcXoQWLzGz1pUvUr0n-S2oL7h6vHvBr0g9kJpVNsWVqt1vgxYOsfnFxmNlV"),
	Endpoint:     endpoints.Google,
	Scopes:       []string{"https://mail.google.com/"},
}

// OAuth2Config selects an OAuth2 provider for the oauthlogin flow. Provider
// is the only thing a user configures; the client id/secret, endpoint and
// scopes for that provider come bundled.
type OAuth2Config struct {
	Provider string        `json:"provider" toml:"provider" yaml:"provider,omitempty"`
	Config   oauth2.Config `json:"-" toml:"-" yaml:"-"`
}

func DefaultOAuth2Config() OAuth2Config {
	return OAuth2Config{Provider: "google"}
}

func (cfg *OAuth2Config) Parameters() []cli.Flag {
	def := DefaultOAuth2Config()
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "oauth2 provider (google)",
			EnvVars:     []string{"MAILPUMP_OAUTH2_PROVIDER"},
			Destination: &cfg.Provider,
			Value:       def.Provider,
		},
	}
}

// Resolve fills in cfg.Config from cfg.Provider.
func (cfg *OAuth2Config) Resolve() error {
	switch strings.ToLower(cfg.Provider) {
	case "", "google":
		cfg.Config = oauthProviderGoogle
	default:
		return fmt.Errorf("unsupported oauth2 provider: %v", cfg.Provider)
	}

	return nil
}
