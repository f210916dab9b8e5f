package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netshark/netshark/cmd/internal/cmderr"
	"github.com/netshark/netshark/printer"
	"github.com/netshark/netshark/util"
	"github.com/netshark/netshark/version"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:           "netshark",
	Short:         "Live network packet capture, decoding, and stats server.",
	Long:          "netshark captures traffic on a network interface, decodes each frame, and serves the decoded packets and rolling traffic statistics over an HTTP/WebSocket API.",
	Version:       version.CLIDisplayString(),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command and translates its error into a process
// exit code: 0 on clean shutdown, 1 for a plain CLI usage error, or the
// wrapped util.ExitError's code for anything the CLI itself decided on.
func Execute() {
	if cmd, err := rootCmd.ExecuteC(); err != nil {
		if _, isCLIErr := err.(cmderr.CLIErr); !isCLIErr {
			cmd.Println(cmd.UsageString())
		}

		exitCode := 1
		var exitErr util.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode
		}
		printer.Stderr.Errorf("%s\n", err)
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "If set, outputs detailed information for debugging.")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}
