package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vietddude/walletsync/internal/control"
)

var resetHeightCmd = &cobra.Command{
	Use:   "reset-height [block_height]",
	Short: "Overwrite the persisted sync height so the next catch-up rescans from there",
	Args:  cobra.ExactArgs(1),
	Run:   runResetHeight,
}

func init() {
	rootCmd.AddCommand(resetHeightCmd)
}

func runResetHeight(cmd *cobra.Command, args []string) {
	height, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid block height: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig()

	ctx := context.Background()
	store, _, err := control.OpenStore(ctx, cfg.Storage, cfg.Database)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.SetSyncHeight(ctx, height); err != nil {
		slog.Error("Failed to reset height", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully reset sync height to %d\n", height)
}
