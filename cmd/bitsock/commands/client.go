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
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/LolzDEV/bitsock/client"
	"github.com/LolzDEV/bitsock/log"
	"github.com/LolzDEV/bitsock/network/packet"
	"github.com/spf13/cobra"
)

var clientCmd = &cobra.Command{
	Use:   "client [addr]",
	Short: "connects to a bitsock server and keeps on greeting it",
	Long: `connects to a bitsock server and sends it an I32(5) packet every two
seconds, printing the replies.

addr: server address (format host:port), default localhost:4444`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}

		target := "localhost:4444"
		if len(args) == 1 {
			target = args[0]
		}

		host, p, err := net.SplitHostPort(target)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		port, err := strconv.Atoi(p)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		d := &client.Dialer{Proxy: proxy}
		c, err := d.Connect(context.Background(), host, port)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer c.Close()

		for i := 0; count == 0 || i < count; i++ {
			if err := c.Send(packet.I32(5)); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}

			p, err := c.Recv()
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}

			if s, err := p.Text(); err == nil {
				log.Printf("received String: %v", s)
			} else {
				log.Printf("received: %v", p)
			}

			time.Sleep(2 * time.Second)
		}
	},
}
