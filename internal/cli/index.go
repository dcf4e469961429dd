package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexWatch bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the documentation corpus",
	Long: `Chunks and embeds the configured documentation directory into the
vector store. With --watch the command keeps running, re-indexing on file
changes and on the configured schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.indexDocs(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Indexing complete.")

		if !indexWatch {
			return nil
		}

		zl := rt.log.GetZerolog()
		reindex := func() {
			if err := rt.indexDocs(cmd.Context()); err != nil {
				zl.Error().Err(err).Msg("Re-indexing failed")
			}
		}

		// the flag forces the watcher on, the schedule comes from config
		ragCfg := rt.cfg.RAG
		ragCfg.Watch = true
		stopReindexers, err := startReindexers(ragCfg, rt.docsPath(), zl, reindex)
		if err != nil {
			return err
		}
		defer stopReindexers()

		fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes, press Ctrl+C to stop.")
		<-cmd.Context().Done()
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep running and re-index on changes")
	rootCmd.AddCommand(indexCmd)
}
