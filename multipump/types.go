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
	"reflect"

	"github.com/vs49688/imappush/ingest"
	"github.com/vs49688/imappush/pump"
)

// Config fans one destination ingest.Client out to several source folders,
// each driven by its own push.Controller.
type Config struct {
	Destination ingest.Config
	Sources     []pump.Config

	DoneChan chan<- error
	StopChan <-chan struct{}
}

// MultiPusher owns every FolderPusher's lifetime plus the one shared
// ingest.Client they deliver into.
type MultiPusher struct {
	ingest  ingest.Client
	pushers []*pump.FolderPusher

	cases      []reflect.SelectCase
	stopOffset int
}
