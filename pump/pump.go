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

package pump

import (
	goclient "github.com/emersion/go-imap/client"
	"github.com/vs49688/imappush/imap"
	"github.com/vs49688/imappush/push"
	"github.com/vs49688/imappush/receiver"
)

// NewFolderPusher builds and starts one folder's push.Controller: dial the
// source, build the receiver.FolderReceiver that turns a sync request into
// delivered mail, and hand both to a push.Loop.
func NewFolderPusher(cfg *Config) (*FolderPusher, error) {
	updates := make(chan goclient.Update, 10)

	c, err := cfg.SourceFactory.NewClient(&imap.ClientConfig{
		ConnectionConfig: cfg.Source,
		Updates:          updates,
	})
	if err != nil {
		return nil, err
	}

	recv := receiver.NewFolderReceiver(receiver.FolderReceiverConfig{
		Name:             cfg.FolderName,
		Client:           c,
		Ingest:           cfg.Ingest,
		DestMailbox:      cfg.DestMailbox,
		StateFile:        cfg.PushStateFile,
		DisableDeletions: cfg.DisableDeletions,
	})

	// IMAPFolder starts out believing the folder is closed even though
	// SourceFactory.NewClient already SELECTed it; push.Loop's first
	// iteration re-opens it, a harmless redundant SELECT, and proceeds
	// with an accurate openedNew=true for that iteration.
	folder := push.NewIMAPFolder(cfg.FolderName, c, updates)

	loop := push.NewLoop(cfg.FolderName, folder, recv, cfg.FolderConfig, push.NewWakeLock(cfg.FolderName))
	controller := push.NewController(loop)

	if err := controller.Start(); err != nil {
		_ = c.Logout()
		return nil, err
	}

	return &FolderPusher{
		name:       cfg.FolderName,
		client:     c,
		controller: controller,
		receiver:   recv,
	}, nil
}

// Name is the folder this pusher was built for.
func (p *FolderPusher) Name() string { return p.name }

// Done is closed once the underlying push.Loop has fully exited.
func (p *FolderPusher) Done() <-chan struct{} { return p.controller.Done() }

// Refresh asks the push.Loop to end its current IDLE and poll immediately.
func (p *FolderPusher) Refresh() { p.controller.Refresh() }

// Close stops the push.Loop and waits for it to exit. It does not close
// the shared ingest.Client; the caller owns that.
func (p *FolderPusher) Close() {
	_ = p.controller.Stop()
	<-p.controller.Done()
}
