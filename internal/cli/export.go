package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/ragdesk/backend/internal/export"
)

func newExportCommand(opts *options) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session to json, yaml or md",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := export.NewExporter(format)
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			session, err := a.directory.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output == "" {
				return exporter.Export(session, cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			if err := exporter.Export(session, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", session.ID, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "md", "Export format (json, yaml, md)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
