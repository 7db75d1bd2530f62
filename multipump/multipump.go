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

package multipump

import (
	"errors"
	"reflect"

	log "github.com/sirupsen/logrus"
	"github.com/vs49688/imappush/ingest"
	"github.com/vs49688/imappush/pump"
)

// closeAndWait closes every pusher concurrently, plus the shared ingest
// client, so a slow shutdown on one folder can't hold up the rest.
func closeAndWait(pushers []*pump.FolderPusher, ing ingest.Client) {
	done := make(chan struct{}, len(pushers)+1)

	for _, p := range pushers {
		go func(p *pump.FolderPusher) { p.Close(); done <- struct{}{} }(p)
	}
	go func() { ing.Close(); done <- struct{}{} }()

	for i := 0; i < len(pushers)+1; i++ {
		<-done
	}
}

func makePushers(sources []pump.Config, ing ingest.Client) ([]*pump.FolderPusher, error) {
	pushers := make([]*pump.FolderPusher, 0, len(sources))

	for i := range sources {
		cfg := sources[i]
		cfg.Ingest = ing

		p, err := pump.NewFolderPusher(&cfg)
		if err != nil {
			for _, started := range pushers {
				started.Close()
			}
			return nil, err
		}
		pushers = append(pushers, p)
	}

	return pushers, nil
}

// NewMultiPusher starts one push.Controller per configured source folder,
// all delivering into the one shared destination ingest.Client.
func NewMultiPusher(cfg *Config) (*MultiPusher, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	ing, err := ingest.NewClient(&cfg.Destination)
	if err != nil {
		return nil, err
	}

	pushers, err := makePushers(cfg.Sources, ing)
	if err != nil {
		ing.Close()
		return nil, err
	}

	mp := &MultiPusher{ingest: ing, pushers: pushers}

	mp.cases = make([]reflect.SelectCase, len(pushers)+1)
	for i, p := range pushers {
		mp.cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(p.Done())}
	}

	mp.stopOffset = len(pushers)
	mp.cases[mp.stopOffset] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(cfg.StopChan)}

	go func() { cfg.DoneChan <- mp.tick() }()

	return mp, nil
}

// neverChan is substituted for a folder's Done channel once it's already
// fired, so reflect.Select doesn't spin on an already-closed channel.
func neverChan() reflect.Value {
	return reflect.ValueOf(make(chan struct{}))
}

func (mp *MultiPusher) tick() error {
	alive := make([]bool, len(mp.pushers))
	remaining := len(mp.pushers)
	for i := range alive {
		alive[i] = true
	}

	for remaining > 0 {
		chosen, _, _ := reflect.Select(mp.cases)

		if chosen == mp.stopOffset {
			log.Trace("multipump_stop_requested")
			return nil
		}

		if alive[chosen] {
			alive[chosen] = false
			remaining--
			mp.cases[chosen].Chan = neverChan()
			log.WithField("folder", mp.pushers[chosen].Name()).Warn("multipump_folder_pusher_exited")
		}
	}

	log.Warn("multipump_all_pushers_exited")
	return nil
}

// Close stops every FolderPusher and the shared ingest.Client.
func (mp *MultiPusher) Close() {
	closeAndWait(mp.pushers, mp.ingest)
}
