/*
Copyright (C) 2018 Daniel Morandini

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as
published by the Free Software Foundation, either version 3 of the
License, or (at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package commands

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/LolzDEV/bitsock/log"
	"github.com/LolzDEV/bitsock/server"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "starts the greeting server plus an http server streaming its connection events over websocket",
	Long: `starts the greeting server plus an http server serving ws connections on
/monitor. Each ws connection receives the server's connection lifecycle
events as JSON encoded real-time messages.

	Example:
	bin/bitsock monitor
	2018/05/28 17:47:23.247894 server: listening on [::]:4444
	2018/05/28 17:47:23.248107 monitor: listening on port: :4000
`,
	Args: cobra.MaximumNArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}

		srv, err := server.NewBuilder().
			Address(addr).
			Port(port).
			HandlerFunc(greet).
			Build()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		go func() {
			if err := srv.Run(); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}()

		http.HandleFunc("/monitor", monitorHandler(srv))

		hp := fmt.Sprintf(":%d", httpPort)
		log.Info.Printf("monitor: listening on port: %v", hp)
		if err := http.ListenAndServe(hp, nil); err != nil {
			log.Error.Printf("ListenAndServe: %v", err)
		}
	},
}

// Message is the JSON shape of one event streamed to ws clients.
type Message struct {
	Event string `json:"event"`
	Addr  string `json:"addr"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func monitorHandler(srv *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error.Println(err)
			return
		}
		defer conn.Close()

		done := make(chan struct{})
		var once sync.Once
		fail := func() {
			once.Do(func() { close(done) })
		}

		// the ws writer lives in this goroutine only: events get
		// forwarded through a channel, slow readers miss some.
		events := make(chan server.ConnEvent, 16)
		cancel, err := srv.PubSub.Sub(server.TopicConnEvents, func(m interface{}) {
			if ev, ok := m.(server.ConnEvent); ok {
				select {
				case events <- ev:
				default:
				}
			}
		})
		if err != nil {
			log.Error.Printf("monitor: %v", err)
			return
		}
		defer cancel()

		// keep on reading pong messages
		go func() {
			pongWait := time.Second * 20
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				conn.SetReadDeadline(time.Now().Add(pongWait))
				return nil
			})

			for {
				if _, _, err := conn.NextReader(); err != nil {
					fail()
					return
				}
			}
		}()

		ticker := time.NewTicker(time.Second * 4)
		defer ticker.Stop()

		for {
			select {
			case ev := <-events:
				conn.SetWriteDeadline(time.Now().Add(time.Second * 5))
				if err := websocket.WriteJSON(conn, &Message{
					Event: ev.Event.String(),
					Addr:  ev.Addr,
				}); err != nil {
					log.Error.Printf("monitor: %v", err)
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(time.Second * 2))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Error.Printf("monitor: %v", err)
					return
				}
			case <-done:
				log.Info.Println("monitor: closing handler...")
				return
			}
		}
	}
}
