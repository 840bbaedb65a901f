package cmd

import (
	"github.com/spf13/cobra"
)

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swp",
		Short: "Reliable, congestion-controlled transfer over lossy datagram links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newVersionCmd(version)) // version subcommand
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newRecvCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}

// Execute invokes the command.
func Execute(version string) error {
	if err := newRootCmd(version).Execute(); err != nil {
		return err
	}

	return nil
}
