package cli

import (
	"fmt"

	"github.com/maisonlane/concierge/internal/config"
	"github.com/spf13/cobra"
)

var (
	configureProvider string
	configureAPIKey   string
	configureModel    string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write a starter configuration file",
	Long: `Write a starter configuration file with an AI profile. Existing
settings in the file are replaced.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configureProvider, "provider", "openai", "AI provider (openai, anthropic)")
	configureCmd.Flags().StringVar(&configureAPIKey, "api-key", "", "API key for the provider")
	configureCmd.Flags().StringVar(&configureModel, "model", "", "model name override")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	if configureAPIKey == "" {
		return fmt.Errorf("--api-key is required")
	}

	cfg := config.DefaultConfig()
	cfg.AI.Profiles = []config.AIProfile{
		{
			ID:       "default",
			Provider: configureProvider,
			APIKey:   configureAPIKey,
			Priority: 1,
		},
	}
	if configureModel != "" {
		cfg.Agent.Model = configureModel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loader := config.NewLoader(cfgFile)
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration saved to: %s\n", loader.GetConfigPath())
	cmd.Println("Start the service with: concierge serve")
	return nil
}
