package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Towich/mail-ads-ai/internal/config"
)

var (
	configureProvider string
	configureModel    string
	configureAPIKey   string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create or update the configuration file",
	Long: `Writes the configuration file, seeding it with defaults on first run.
Settings given as flags override the stored values; everything else is
preserved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader(cfgFile)
		path, err := applyConfigure(loader, configureProvider, configureModel, configureAPIKey)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

// applyConfigure loads the current configuration, applies the non-empty
// overrides and saves it back.
func applyConfigure(loader *config.Loader, provider, model, apiKey string) (string, error) {
	cfg, err := loader.Load()
	if err != nil {
		return "", err
	}

	if provider != "" {
		cfg.LLM.Provider = provider
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}

	if err := loader.Save(cfg); err != nil {
		return "", err
	}
	return loader.GetConfigPath(), nil
}

func init() {
	configureCmd.Flags().StringVar(&configureProvider, "provider", "", "chat model provider (openai, anthropic, ollama)")
	configureCmd.Flags().StringVar(&configureModel, "model", "", "chat model name")
	configureCmd.Flags().StringVar(&configureAPIKey, "api-key", "", "provider api key")
	rootCmd.AddCommand(configureCmd)
}
