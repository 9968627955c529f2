package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assix/software-engineer-ai-agent/persistence"
)

func newHistoryCmd() *cobra.Command {
	var sessionID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past sessions, or show one session's attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalCfg
			if !cfg.History.Enabled {
				return fmt.Errorf("session history is disabled in the config")
			}
			store, err := persistence.OpenSessionStore(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if sessionID != "" {
				attempts, err := store.AttemptsFor(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				if len(attempts) == 0 {
					return fmt.Errorf("no attempts recorded for session %s", sessionID)
				}
				for _, att := range attempts {
					cmd.Printf("attempt %d  classification=%s", att.Seq, att.Classification)
					if att.Package != "" {
						cmd.Printf(" package=%s healed=%v", att.Package, att.Healed)
					}
					cmd.Println()
					if att.Stderr != "" {
						cmd.Printf("  stderr: %s\n", firstLine(att.Stderr))
					}
				}
				return nil
			}

			sessions, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				cmd.Println("no sessions recorded yet")
				return nil
			}
			for _, s := range sessions {
				cmd.Printf("%s  %-10s  attempts=%d heals=%d  %s\n",
					s.StartedAt.Format("2006-01-02 15:04"), s.Outcome, s.Attempts, s.Heals, s.Task)
				cmd.Printf("    id: %s\n", s.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Show attempts for one session ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of sessions to list")
	return cmd
}
