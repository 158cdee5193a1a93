package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/walletsync/internal/control"
	redisclient "github.com/vietddude/walletsync/internal/infra/redis"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted sync height, balance and recent wallet transactions",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of recent transactions to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	height, hasHeight, err := store.GetSyncHeight(ctx)
	if err != nil {
		slog.Error("Failed to read sync height", "error", err)
		os.Exit(1)
	}
	balance, _, err := store.GetAggregateBalance(ctx)
	if err != nil {
		slog.Error("Failed to read balance", "error", err)
		os.Exit(1)
	}
	rows, err := store.ListTransactions(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to list transactions", "error", err)
		os.Exit(1)
	}

	if hasHeight {
		fmt.Printf("Height:  %d\n", height)
	} else {
		fmt.Println("Height:  (never synced)")
	}
	fmt.Printf("Balance: %s\n", balance.String())

	if cfg.Redis.Enabled() {
		printLastUpdate(ctx, cfg.Redis)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tHEIGHT\tKIND\tTX\tSEEN")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
			r.ID, r.BlockHeight, r.Kind, r.TxHash, r.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}

func printLastUpdate(ctx context.Context, cfg redisclient.Config) {
	client, err := redisclient.NewClient(cfg)
	if err != nil {
		slog.Warn("Failed to connect to Redis", "error", err)
		return
	}
	defer func() {
		_ = client.Close()
	}()

	payload, ok, err := client.LastPublished(ctx, cfg.Channel)
	switch {
	case err != nil:
		slog.Warn("Failed to read last update", "error", err)
	case !ok:
		fmt.Println("Last update: none published")
	default:
		fmt.Printf("Last update: %s\n", payload)
	}
}
