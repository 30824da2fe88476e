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

	"github.com/LolzDEV/bitsock/log"
	"github.com/LolzDEV/bitsock/network"
	"github.com/LolzDEV/bitsock/network/packet"
	"github.com/LolzDEV/bitsock/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "starts a bitsock server greeting every packet received",
	Long: `starts a bitsock server that replies String("Hello There!") to every packet
it receives, until the peer disconnects. Meant to be driven with the client command.`,
	Args: cobra.MaximumNArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}

		cfg, err := loadConfig()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		srv, err := server.NewBuilder().
			Address(cfg.Address).
			Port(cfg.Port).
			MaxConns(cfg.MaxConns).
			HandlerFunc(greet).
			Build()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		if err := srv.Run(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

// greet drives one connection: log whatever comes in, reply with a
// greeting, leave when the peer does.
func greet(conn *network.Conn) {
	for {
		p, err := conn.Recv()
		if err != nil {
			if err != network.ErrDisconnected {
				log.Error.Printf("server: %v: %v", conn.RemoteAddr(), err)
			}
			return
		}

		log.Printf("received: %v", p)

		reply, err := packet.String("Hello There!")
		if err != nil {
			log.Error.Printf("server: %v", err)
			return
		}
		if err := conn.Send(reply); err != nil {
			log.Error.Printf("server: %v: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// Config is the YAML configuration accepted by the server and monitor
// commands. Flags fill it first, the file overrides them.
type Config struct {
	Address  string `yaml:"address"`
	Port     int    `yaml:"port"`
	MaxConns int    `yaml:"max_conns"`
	Verbose  bool   `yaml:"verbose"`
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		Address:  addr,
		Port:     port,
		MaxConns: maxConns,
	}

	if cfgFile == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %v", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config: %v", err)
	}

	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	return cfg, nil
}
