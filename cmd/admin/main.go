package main

import (
	"fmt"
	"os"

	"github.com/dearfuture/letterbox/cmd/admin/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "letterbox-admin",
		Short: "Admin tool for the letterbox service",
		Long:  "CLI tool for inspecting user stats, due letters and the stat event dead letter queue",
	}

	rootCmd.AddCommand(commands.NewStatsCmd())
	rootCmd.AddCommand(commands.NewDueCmd())
	rootCmd.AddCommand(commands.NewPurgeDLQCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
