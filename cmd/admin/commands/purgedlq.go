package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dearfuture/letterbox/internal/config"
	"github.com/dearfuture/letterbox/internal/queue"
	"github.com/spf13/cobra"
)

// NewPurgeDLQCmd creates the purge-dlq command
func NewPurgeDLQCmd() *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "purge-dlq",
		Short: "Purge old dead-lettered stat events",
		Long:  "Remove stat events that have sat in the dead letter queue longer than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			eventQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := eventQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ connection: %v\n", err)
				}
			}()

			purged, err := eventQueue.PurgeOlderThan(context.Background(), retention)
			if err != nil {
				return fmt.Errorf("failed to purge DLQ: %w", err)
			}

			fmt.Printf("Purged %d dead-lettered event(s) older than %v\n", purged, retention)
			return nil
		},
	}

	cmd.Flags().DurationVar(&retention, "retention", 24*time.Hour, "purge events older than this")

	return cmd
}
