package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mubashir494/swp/internal/telemetry"
)

type exportOptions struct {
	OutputFile string
}

func newExportCmd() *cobra.Command {
	o := &exportOptions{}

	cmd := &cobra.Command{
		Use:          "export <cwnd-log>",
		Short:        "exports a recorded congestion-window log as CSV for plotting",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE:         o.run,
	}

	cmd.Flags().StringVarP(&o.OutputFile, "out", "o", "", "file to write, stdout if omitted")

	return cmd
}

func (o *exportOptions) run(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	out := os.Stdout
	if o.OutputFile != "" {
		file, err := os.Create(o.OutputFile)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	return telemetry.ExportCSV(in, out)
}
