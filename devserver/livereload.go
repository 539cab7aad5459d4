// Copyright 2021 Artificial Intelligence Redefined <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package devserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	liveReloadWriteWait = 10 * time.Second
	liveReloadPongWait  = 60 * time.Second
	liveReloadPingEvery = (liveReloadPongWait * 9) / 10
)

var liveReloadUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// liveReload pushes the build events following the connection to the client.
func (s *Server) liveReload(c *gin.Context) {
	from := s.events.Len()
	conn, err := liveReloadUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debugf("live reload upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(liveReloadPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(liveReloadPongWait))
	})
	// The client never sends anything, reading only processes control frames and detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := make(chan BuildEvent)
	go func() {
		_ = s.events.Observe(ctx, from, events)
	}()

	ticker := time.NewTicker(liveReloadPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			if err := conn.SetWriteDeadline(time.Now().Add(liveReloadWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(liveReloadWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
