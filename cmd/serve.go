package cmd

import (
	"github.com/emrgen/propagate/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var httpPort string

	command := &cobra.Command{
		Use:   "serve",
		Short: "start the propagation service",
		Long:  `start the http api, the change queue worker and the scheduled repair job`,
		Run: func(cmd *cobra.Command, args []string) {
			server.NewServer(httpPort).Start()
		},
	}

	command.Flags().StringVarP(&httpPort, "http-port", "", "", "http port, defaults to HTTP_PORT")

	return command
}
