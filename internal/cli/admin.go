package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
)

func newAdminCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the backend's documents and history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ingest <file...>",
		Short: "Upload .pdf, .txt or .xlsx files for indexing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads := make([]rag.Upload, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				uploads = append(uploads, rag.Upload{Name: filepath.Base(path), Data: data})
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			res, err := a.admin.Ingest(cmd.Context(), uploads)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s chunks added\n", countStyle.Render(fmt.Sprint(res.ChunksAdded)))
			for _, e := range res.Errors {
				fmt.Fprintf(out, "%s %s: %s\n", errorStyle.Render("✗"), e.File, e.Error)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "files",
		Short: "List ingested files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			files, err := a.admin.Files(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Files (%d)", len(files))))
			for _, f := range files {
				fmt.Fprintln(out, f)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm-file <filename>",
		Short: "Remove a file's chunks from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			res, err := a.admin.DeleteFile(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted chunks for %s\n", res.DeletedFor)
			return nil
		},
	})

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "Show logged questions and answers, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			items, err := a.admin.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("History (%d)", len(items))))
			for _, it := range items {
				fmt.Fprintf(out, "%s %s\n", dateStyle.Render(it.Timestamp), userStyle.Render(it.Question))
				fmt.Fprintf(out, "  %s\n", it.Answer)
				if len(it.Sources) > 0 {
					fmt.Fprintf(out, "  %s\n", sourceStyle.Render(strings.Join(it.Sources, ", ")))
				}
			}
			return nil
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 100, "Number of entries (1-1000)")
	cmd.AddCommand(history)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear-history",
		Short: "Delete the backend's question history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			if err := a.admin.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	})

	return cmd
}
