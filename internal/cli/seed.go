package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/coastwatch-systems/coastwatch/internal/repository"
	"github.com/coastwatch-systems/coastwatch/internal/seeder"
)

var seedOpts = seeder.DefaultOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo users and reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runMigrations(); err != nil {
			return err
		}
		if seedOpts.Seed == 0 {
			seedOpts.Seed = time.Now().UnixNano()
		}

		ctx := context.Background()
		repo, err := repository.NewPostgresRepository(ctx, cfg.Database.Postgres.ConnString())
		if err != nil {
			return err
		}
		defer repo.Close()

		return seeder.New(repo, log).Run(ctx, seedOpts)
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.Citizens, "citizens", seedOpts.Citizens, "number of citizen accounts")
	seedCmd.Flags().IntVar(&seedOpts.Analysts, "analysts", seedOpts.Analysts, "number of analyst accounts")
	seedCmd.Flags().IntVar(&seedOpts.Reports, "reports", seedOpts.Reports, "number of reports")
	seedCmd.Flags().DurationVar(&seedOpts.SpreadDur, "spread", 30*24*time.Hour, "time window to spread report timestamps over")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", 0, "random seed (0 uses the current time)")
	rootCmd.AddCommand(seedCmd)
}
