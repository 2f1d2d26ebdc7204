package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	chatService "github.com/zhouzirui/ragdesk/backend/internal/service/chat"
)

func newAskCommand(opts *options) *cobra.Command {
	var (
		filename string
		useWeb   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <session-id> <question...>",
		Short: "Ask the backend a question inside a session",
		Long: `Ask sends the question to the backend and records both the question and
the answer in the session. Backend failures are recorded as an "Error: ..."
reply and reported, but the command still succeeds.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			question := strings.Join(args[1:], " ")
			ex, err := a.conversation.Send(cmd.Context(), args[0], question, chatService.SendOptions{
				Filename: filename,
				UseWeb:   useWeb,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n\n", userStyle.Render("You:"), ex.User.Content)
			label := assistantStyle.Render("Assistant:")
			if ex.Failed {
				label = errorStyle.Render("Assistant:")
			}
			fmt.Fprintf(out, "%s %s\n", label, ex.Assistant.Content)
			if len(ex.Assistant.Sources) > 0 {
				fmt.Fprintf(out, "\n%s %s\n", sourceStyle.Render("Sources:"), strings.Join(ex.Assistant.Sources, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filename, "file", "", "Restrict retrieval to one ingested file")
	cmd.Flags().BoolVar(&useWeb, "web", false, "Allow the backend to search the web")
	return cmd
}
