package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/config"
	"github.com/sells-group/competitor-intel/internal/jobs"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Execute queued runs from redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeWorker); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), envOptions{pipeline: true})
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := workerConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Jobs.Workers
		}

		zap.L().Info("starting worker", zap.String("redis", cfg.Jobs.RedisAddr), zap.Int("concurrency", concurrency))
		return jobs.NewWorker(redisOpt(cfg.Jobs), concurrency, env.Runner.Execute).Run()
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "concurrent runs (default from config)")
	rootCmd.AddCommand(workerCmd)
}
