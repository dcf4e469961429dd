package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /help    show this help
  /clear   reset the conversation
  /index   re-index the documentation corpus
  /review  review the pending repository changes
  /quit    exit`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		zl := rt.log.GetZerolog()
		reindex := func() {
			if err := rt.indexDocs(cmd.Context()); err != nil {
				zl.Error().Err(err).Msg("Re-indexing failed")
			}
		}
		stopReindexers, err := startReindexers(rt.cfg.RAG, rt.docsPath(), zl, reindex)
		if err != nil {
			return err
		}
		defer stopReindexers()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Type your question, /help for commands.")

		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}

			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/help":
				fmt.Fprintln(out, chatHelp)
				continue
			case "/clear":
				rt.agent.History().Clear()
				fmt.Fprintln(out, "Conversation cleared.")
				continue
			case "/index":
				if err := rt.indexDocs(cmd.Context()); err != nil {
					fmt.Fprintf(out, "Indexing failed: %v\n", err)
				} else {
					fmt.Fprintln(out, "Indexing complete.")
				}
				continue
			case "/review":
				workflow, err := rt.reviewWorkflow()
				if err != nil {
					fmt.Fprintf(out, "Review setup failed: %v\n", err)
					continue
				}
				outcome, err := workflow.Run(cmd.Context())
				switch {
				case err != nil:
					fmt.Fprintf(out, "Review failed: %v\n", err)
				case outcome.Empty:
					fmt.Fprintln(out, "Working tree is clean, nothing to review.")
				default:
					fmt.Fprintln(out, outcome.Review)
					fmt.Fprintf(out, "\nReport stored at %s\n", outcome.ReportPath)
				}
				continue
			}

			answer, err := rt.agent.ProcessQuery(cmd.Context(), line)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, answer)
		}

		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
