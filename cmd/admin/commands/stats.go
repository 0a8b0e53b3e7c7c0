package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/dearfuture/letterbox/internal/config"
	"github.com/dearfuture/letterbox/internal/database"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <user-id>",
		Short: "Show a user's stats",
		Long:  "Show a user's letter, reflection and goal counters along with streak state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			statsRepo := database.NewUserStatsRepository(db)
			stats, err := statsRepo.GetByUserID(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}

			fmt.Printf("Stats for user %s:\n", userID)
			fmt.Printf("  Total letters:      %d\n", stats.TotalLetters)
			fmt.Printf("  Total reflections:  %d\n", stats.TotalReflections)
			fmt.Printf("  Goals accomplished: %d\n", stats.GoalsAccomplished)
			fmt.Printf("  Current streak:     %d\n", stats.CurrentStreak)
			fmt.Printf("  Longest streak:     %d\n", stats.LongestStreak)
			if stats.LastActivityDate != nil {
				fmt.Printf("  Last activity:      %s\n", stats.LastActivityDate.Format("2006-01-02"))
			} else {
				fmt.Println("  Last activity:      never")
			}

			return nil
		},
	}

	return cmd
}
