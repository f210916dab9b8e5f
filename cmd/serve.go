package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netshark/netshark/api"
	"github.com/netshark/netshark/capture"
	"github.com/netshark/netshark/cmd/internal/cmderr"
	"github.com/netshark/netshark/iface"
	"github.com/netshark/netshark/printer"
)

var (
	interfaceFlag   string
	portFlag        uint16
	promiscuousFlag bool
	bufferSizeFlag  int
	filterFlag      string
	logLevelFlag    string
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the packet-capture HTTP/WebSocket server.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if viper.GetString("log-level") == "debug" {
			viper.Set("debug", true)
		}

		manager := capture.NewManager(capture.PcapOpener{}, iface.NewDefaultProvider())
		if interfaceFlag != "" {
			if err := manager.SetInterface(interfaceFlag); err != nil {
				return cmderr.CLIErr{Err: err}
			}
		}
		if err := manager.SetPromiscuous(promiscuousFlag); err != nil {
			return cmderr.CLIErr{Err: err}
		}
		if err := manager.SetFilter(filterFlag); err != nil {
			return cmderr.CLIErr{Err: err}
		}
		if err := manager.SetBufferSize(bufferSizeFlag); err != nil {
			return cmderr.CLIErr{Err: err}
		}

		server := api.NewServer(manager)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		addr := fmt.Sprintf(":%d", portFlag)
		printer.Infof("netshark: listening on %s\n", addr)
		if err := server.Serve(ctx, addr); err != nil {
			return cmderr.CLIErr{Err: errors.Wrapf(err, "failed to bind %s", addr)}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&interfaceFlag, "interface", "", "Network interface to capture on.")
	serveCmd.Flags().Uint16Var(&portFlag, "port", 3000, "Port to listen on for the HTTP/WebSocket API.")
	serveCmd.Flags().BoolVar(&promiscuousFlag, "promiscuous", false, "Whether to open the interface in promiscuous mode.")
	serveCmd.Flags().IntVar(&bufferSizeFlag, "buffer-size", 1000, "Maximum number of packets retained in the in-memory store.")
	serveCmd.Flags().StringVar(&filterFlag, "filter", "", "BPF filter expression, passed through to the capture handle opaquely.")
	serveCmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "Logging verbosity (info or debug).")
	viper.BindPFlag("log-level", serveCmd.Flags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd)
}
