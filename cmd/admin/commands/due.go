package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dearfuture/letterbox/internal/config"
	"github.com/dearfuture/letterbox/internal/database"
	"github.com/spf13/cobra"
)

// NewDueCmd creates the due command
func NewDueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List due but unread letters",
		Long:  "List letters whose delivery date has passed but that no owner has viewed yet",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			letterRepo := database.NewLetterRepository(db)
			due, err := letterRepo.GetDueUndelivered(context.Background(), time.Now())
			if err != nil {
				return fmt.Errorf("failed to list due letters: %w", err)
			}

			if len(due) == 0 {
				fmt.Println("No due unread letters")
				return nil
			}

			fmt.Printf("%d due unread letter(s):\n", len(due))
			for _, letter := range due {
				fmt.Printf("  - %s  user=%s  due=%s  title=%q\n",
					letter.ID,
					letter.UserID,
					letter.DeliveredAt.Format(time.RFC3339),
					letter.Title,
				)
			}

			return nil
		},
	}

	return cmd
}
