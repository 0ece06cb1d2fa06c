// cmd/codetutor/jobs.go
package main

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/julianshen/codetutor/internal/jobstore"
)

var (
	jobHeaderStyle = lipgloss.NewStyle().Bold(true)
	jobFailedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"})
	jobOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#007700", Dark: "#55FF55"})
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List past tutorial generation runs",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := configDir()
			if err != nil {
				return err
			}
			store, err := jobstore.NewStore(filepath.Join(dir, "jobs.db"))
			if err != nil {
				return fmt.Errorf("opening job history: %w", err)
			}
			defer store.Close()

			records, err := store.List()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No tutorial runs recorded yet.")
				return nil
			}

			fmt.Println(jobHeaderStyle.Render(fmt.Sprintf("%-36s  %-10s  %-8s  %-8s  %-19s  %s",
				"ID", "STATE", "CHAPTERS", "WARNINGS", "STARTED", "ROOT")))
			for _, rec := range records {
				state := rec.State
				if rec.ErrorCode != "" {
					state = jobFailedStyle.Render(fmt.Sprintf("%s (%s)", rec.State, rec.ErrorCode))
				} else if rec.State == "emitted" {
					state = jobOKStyle.Render(rec.State)
				}
				fmt.Printf("%-36s  %-10s  %-8d  %-8d  %-19s  %s\n",
					rec.ID, state, rec.Chapters, rec.Warnings,
					rec.StartedAt.Format("2006-01-02 15:04:05"), rec.Root)
			}
			return nil
		},
	}
	return cmd
}
