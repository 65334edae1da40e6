package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chattmt/chattmt/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and session storage status",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}

		fmt.Printf("config file:   %s\n", config.ConfigPath())
		fmt.Printf("sessions dir:  %s\n", cfg.Sessions.Dir)
		fmt.Printf("model:         %s\n", cfg.OpenAI.Model)
		fmt.Printf("api base:      %s\n", cfg.OpenAI.APIBase)
		if cfg.OpenAI.APIKey == "" {
			fmt.Println("api key:       (not set — export OPENAI_API_KEY)")
		} else {
			fmt.Println("api key:       set")
		}

		manager, err := openManager()
		if err != nil {
			return err
		}
		infos, err := manager.List()
		if err != nil {
			return err
		}
		fmt.Printf("sessions:      %d saved\n", len(infos))
		return nil
	},
}
