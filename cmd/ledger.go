package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jekabolt/grbpwr-insights/config"
	"github.com/jekabolt/grbpwr-insights/internal/shipping"
	"github.com/jekabolt/grbpwr-insights/internal/store"
	"github.com/jekabolt/grbpwr-insights/log"
	"github.com/spf13/cobra"
)

var (
	ledgerCmd = &cobra.Command{
		Use:   "ledger",
		Short: "Manage the shipping cost ledger",
	}

	ledgerImportCmd = &cobra.Command{
		Use:   "import <mapping.yaml>",
		Short: "Upsert the costs of a shipping mapping file into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE:  ledgerImport,
	}
)

func init() {
	ledgerCmd.AddCommand(ledgerImportCmd)
}

func ledgerImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("can't load insights config: %w", err)
	}
	slog.SetDefault(log.New(cfg.Logger, os.Stdout))

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := shipping.ParseMapping(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := store.New(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	costs := m.ShipmentCosts()
	if err := db.UpsertShipmentCosts(ctx, costs); err != nil {
		return err
	}
	slog.Default().InfoContext(ctx, "shipping ledger imported",
		slog.String("file", args[0]),
		slog.Int("orders", len(costs)),
	)
	return nil
}
