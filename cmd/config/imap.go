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
	"context"
	"crypto/tls"
	"fmt"
	"io/ioutil"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/vs49688/imappush/imap"
	"github.com/vs49688/imappush/imap/client"
	"github.com/vs49688/imappush/imap/persistentclient"
)

func DefaultIMAPConfig() IMAPConfig {
	return IMAPConfig{
		AuthMethod:    "NORMAL",
		TLSSkipVerify: false,
		Transport:     "persistent",
		Debug:         false,
		OAuth2:        DefaultOAuth2Config(),
	}
}

func (cfg *IMAPConfig) makeIMAPParameters(lowerPrefix string, def IMAPConfig) []cli.Flag {
	upperPrefix := strings.ToUpper(lowerPrefix)

	return []cli.Flag{
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-url", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap url", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_URL", upperPrefix)},
			Destination: &cfg.URL,
			Required:    true,
			Value:       def.URL,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-auth-method", lowerPrefix),
			Usage:       fmt.Sprintf("%v auth method", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_AUTH_METHOD", upperPrefix)},
			Destination: &cfg.AuthMethod,
			Required:    false,
			Value:       def.AuthMethod,
		},

		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-username", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap username", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_USERNAME", upperPrefix)},
			Destination: &cfg.Username,
			Required:    true,
			Value:       def.Username,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-password", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap password", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_PASSWORD", upperPrefix)},
			Destination: &cfg.Password,
			Required:    false,
			Value:       def.Password,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-password-file", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap password file", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_PASSWORD_FILE", upperPrefix)},
			Destination: &cfg.PasswordFile,
			Required:    false,
			Value:       def.PasswordFile,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-systemd-credential", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap password, as a systemd LoadCredential= name", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_SYSTEMD_CREDENTIAL", upperPrefix)},
			Destination: &cfg.SystemdCredential,
			Required:    false,
			Value:       def.SystemdCredential,
		},
		&cli.BoolFlag{
			Name:        fmt.Sprintf("%v-tls-skip-verify", lowerPrefix),
			Usage:       fmt.Sprintf("skip %v tls verification", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_TLS_SKIP_VERIFY", upperPrefix)},
			Destination: &cfg.TLSSkipVerify,
			Value:       def.TLSSkipVerify,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-transport", lowerPrefix),
			Usage:       fmt.Sprintf("%v imap transport (persistent, standard)", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_TRANSPORT", upperPrefix)},
			Destination: &cfg.Transport,
			Value:       def.Transport,
		},
		&cli.BoolFlag{
			Name:        fmt.Sprintf("%v-debug", lowerPrefix),
			Usage:       fmt.Sprintf("display %v debug info", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("MAILPUMP_%v_DEBUG", upperPrefix)},
			Destination: &cfg.Debug,
			Value:       def.Debug,
		},
	}
}

func extractUrl(u *url.URL) (string, string, bool, error) {
	var defaultPort string
	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case "imap":
		defaultPort = "143"
		useTLS = false
	case "imaps":
		defaultPort = "993"
		useTLS = true
	default:
		return "", "", false, errInvalidScheme
	}

	host := u.Hostname()
	port := u.Port()

	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(host, port), strings.TrimPrefix(u.Path, "/"), useTLS, nil
}

// readSystemdCredential reads name out of dir (systemd's
// $CREDENTIALS_DIRECTORY), rejecting anything that would escape it.
func readSystemdCredential(dir, name string) (string, error) {
	clean := filepath.Clean(name)
	if clean != name || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid systemd credential name: %q", name)
	}

	data, err := ioutil.ReadFile(filepath.Join(dir, clean))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

func (cfg *IMAPConfig) resolvePassword() (string, error) {
	if cfg.SystemdCredential != "" {
		dir := os.Getenv("CREDENTIALS_DIRECTORY")
		if dir == "" {
			return "", fmt.Errorf("systemd_credential %q requested but $CREDENTIALS_DIRECTORY is not set", cfg.SystemdCredential)
		}

		return readSystemdCredential(dir, cfg.SystemdCredential)
	}

	if cfg.Password != "" {
		return cfg.Password, nil
	}

	if cfg.PasswordFile != "" {
		pass, err := ioutil.ReadFile(cfg.PasswordFile)
		if err != nil {
			return "", err
		}

		return strings.TrimSpace(string(pass)), nil
	}

	return "", fmt.Errorf("one of password, password-file or systemd-credential is required")
}

func (cfg *IMAPConfig) resolveAuth(password string) (imap.Authenticator, error) {
	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required when using %v auth", cfg.AuthMethod)
	}

	switch strings.ToUpper(cfg.AuthMethod) {
	case "", "NORMAL", "LOGIN":
		return imap.NewNormalAuthenticator(cfg.Username, password), nil
	case sasl.Plain:
		return imap.NewSASLAuthenticator(sasl.NewPlainClient("", cfg.Username, password)), nil
	case "OAUTHBEARER", "XOAUTH2":
		// password is the refresh token oauthlogin prints; access tokens are
		// minted from it through the configured provider.
		oauthCfg := cfg.OAuth2
		if err := oauthCfg.Resolve(); err != nil {
			return nil, err
		}
		source := oauthCfg.Config.TokenSource(context.Background(), &oauth2.Token{RefreshToken: password})
		if strings.ToUpper(cfg.AuthMethod) == "XOAUTH2" {
			return imap.NewXOAuth2Authenticator(cfg.Username, source), nil
		}
		return imap.NewOAuthBearerAuthenticator(cfg.Username, source), nil
	default:
		return nil, fmt.Errorf("unsupported auth method: %v", cfg.AuthMethod)
	}
}

// Resolve turns an IMAPConfig into the ConnectionConfig+Factory pair a
// receiver/ingest client actually needs, resolving URL, credentials and
// transport in one pass.
func (cfg *IMAPConfig) Resolve() (imap.ConnectionConfig, imap.Factory, error) {
	sourceURL, err := url.Parse(cfg.URL)
	if err != nil {
		return imap.ConnectionConfig{}, nil, err
	}

	hostPort, mailbox, wantTLS, err := extractUrl(sourceURL)
	if err != nil {
		return imap.ConnectionConfig{}, nil, err
	}

	password, err := cfg.resolvePassword()
	if err != nil {
		return imap.ConnectionConfig{}, nil, err
	}

	auth, err := cfg.resolveAuth(password)
	if err != nil {
		return imap.ConnectionConfig{}, nil, err
	}

	var tlsConfig *tls.Config
	if cfg.TLSSkipVerify {
		// #nosec G402
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	connConfig := imap.ConnectionConfig{
		HostPort:  hostPort,
		Auth:      auth,
		Mailbox:   mailbox,
		TLS:       wantTLS,
		TLSConfig: tlsConfig,
		Debug:     cfg.Debug,
	}

	var factory imap.Factory
	if cfg.Transport == "persistent" {
		factory = persistentclient.Factory{MaxDelay: 0}
	} else {
		factory = client.Factory{}
	}

	return connConfig, factory, nil
}
