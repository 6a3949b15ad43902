package main

import (
	"log"

	"github.com/spf13/cobra"

	"warpout-core/internal/jsproxy"
	"warpout-core/internal/metrics"
	"warpout-core/internal/server"
)

func serverCmd() *cobra.Command {
	var (
		bind        string
		port        uint16
		maxClients  int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the replay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr != "" {
				go func() {
					if err := metrics.Serve(metricsAddr); err != nil {
						log.Printf("metrics listener: %v", err)
					}
				}()
			}

			srv, err := server.Create(bind, port, maxClients, jsproxy.Handlers())
			if err != nil {
				return err
			}
			log.Printf("listening on %s:%d (max %d clients)", bind, port, maxClients)
			return srv.Run()
		},
	}

	cmd.Flags().StringVarP(&bind, "bind", "b", "0.0.0.0", "bind address or interface name")
	cmd.Flags().Uint16VarP(&port, "port", "p", 0, "listen port")
	cmd.Flags().IntVar(&maxClients, "max-clients", 10, "maximum concurrent clients")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "expose Prometheus metrics on this address (e.g. :9090)")
	cmd.MarkFlagRequired("port")

	return cmd
}
