package main

import (
	"fmt"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "grbpwr-insights",
		Short: "Sales, coupon and shipping insights over the shop's orders",
		Long: `grbpwr-insights pulls paid orders from the shop API for a reporting period,
reconciles free-shipping coupons against the shipping cost ledger and serves
the aggregated dashboard on GET /api/dashboard.

Without a subcommand it runs the HTTP service until SIGINT, SIGTERM or SIGHUP.`,
		RunE: run,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	cfgFile string
	version string
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "toml config file (searched in ./config, $HOME/config/grbpwr-insights and /etc/grbpwr-insights when empty)")
	rootCmd.AddCommand(versionCmd, ledgerCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Default().Error("grbpwr-insights failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
