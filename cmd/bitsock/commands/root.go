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
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   string
	BuildTime string
)

var (
	verbose  bool
	addr     string
	port     int
	maxConns int
	cfgFile  string
	proxy    string
	count    int
	httpPort int
)

var rootCmd = &cobra.Command{
	Use:   "bitsock",
	Short: "bitsock exchanges typed packets between TCP peers",
	Long:  `bitsock turns a raw TCP stream into a sequence of typed packets, letting a server and its clients talk without hand-rolling framing or parsing`,
}

func Execute() {
	// parse flags
	serverCmd.Flags().StringVar(&addr, "address", "0.0.0.0", "address to bind")
	serverCmd.Flags().IntVar(&port, "port", 4444, "port to bind")
	serverCmd.Flags().IntVar(&maxConns, "max-conns", 0, "connection cap, 0 means unbounded")
	serverCmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML configuration file")
	clientCmd.Flags().StringVar(&proxy, "proxy", "", "SOCKS5 proxy to tunnel the connection through (host:port)")
	clientCmd.Flags().IntVar(&count, "count", 0, "number of packets to send, 0 means forever")
	monitorCmd.Flags().IntVar(&httpPort, "http-port", 4000, "port the websocket gateway listens on")
	monitorCmd.Flags().StringVar(&addr, "address", "0.0.0.0", "address to bind")
	monitorCmd.Flags().IntVar(&port, "port", 4444, "port to bind")

	// add commands
	rootCmd.AddCommand(versionCmd, serverCmd, clientCmd, monitorCmd)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
