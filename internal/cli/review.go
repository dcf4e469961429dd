package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the pending changes of the repository",
	Long: `Collects the staged, unstaged and untracked changes of the configured
repository, has the model review them, prints the review and stores it as a
markdown report under reviews/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		workflow, err := rt.reviewWorkflow()
		if err != nil {
			return err
		}

		outcome, err := workflow.Run(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outcome.Empty {
			fmt.Fprintln(out, "Working tree is clean, nothing to review.")
			return nil
		}

		fmt.Fprintln(out, outcome.Review)
		fmt.Fprintf(out, "\nReport stored at %s\n", outcome.ReportPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
