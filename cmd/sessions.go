package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, newest first",
	RunE: func(_ *cobra.Command, _ []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		infos, err := manager.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No saved sessions.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  turns=%-4d updated=%s\n",
				info.ID, info.TotalTurns, info.LastUpdated.Local().Format(time.RFC3339))
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's state",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		sess, err := manager.Load(args[0])
		if err != nil {
			return err
		}
		state := sess.State()
		fmt.Printf("Session %s\n", state.ID)
		fmt.Printf("  turns: %d  clarification_count: %d\n", state.TotalTurns, state.ClarificationCount)
		fmt.Printf("  messages in log: %d\n", len(state.RawMessages))
		if state.Summary != nil {
			fmt.Printf("  summarized up to turn: %d\n", state.SummarizedUpToTurn)
			fmt.Println("  summary:")
			fmt.Println(indent(state.Summary.PromptText(), "    "))
		} else {
			fmt.Println("  no summary yet")
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

// openManager builds a session manager without an oracle; listing and
// deletion never compact.
func openManager() (*session.Manager, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return session.NewManager(cfg.Sessions.Dir, nil, cfg.Memory, cfg.Stages.Summarizer)
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
