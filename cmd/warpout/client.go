package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"warpout-core/internal/capture"
	"warpout-core/pkg/transport"
)

const reconnectDelay = 4 * time.Second

func clientCmd() *cobra.Command {
	var (
		device  string
		address string
		port    uint16
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Forward a local input device to a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := fmt.Sprintf("%s:%d", address, port)
			dialer := transport.TCPDialer{}
			for {
				err := capture.Run(device, addr, dialer)
				log.Printf("session ended: %v; retrying in %s", err, reconnectDelay)
				time.Sleep(reconnectDelay)
			}
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "input device path (/dev/input/event*)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "server address")
	cmd.Flags().Uint16VarP(&port, "port", "p", 0, "server port")
	cmd.MarkFlagRequired("device")
	cmd.MarkFlagRequired("address")
	cmd.MarkFlagRequired("port")

	return cmd
}
