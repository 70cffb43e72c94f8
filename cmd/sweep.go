package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/config"
	"github.com/sells-group/competitor-intel/internal/model"
)

var sweepDryRun bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Submit a run for every unapproved project in the Notion database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeServe); err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, envOptions{pipeline: cfg.Jobs.Queue != "redis" && !sweepDryRun, queue: true})
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Tracker == nil {
			return eris.New("sweep: notion.token is required")
		}

		projects, err := env.Tracker.Pending(ctx)
		if err != nil {
			return err
		}
		if sweepDryRun {
			for _, p := range projects {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", p.PageID, p.BusinessName, p.Link)
			}
			return nil
		}

		res := sweep(ctx, env.Runner, projects)
		formatSweep(os.Stdout, res)

		// The memory queue executes in-process; wait for it to drain.
		if env.Memory != nil {
			zap.L().Info("waiting for submitted runs", zap.Int("submitted", len(res.Submitted)))
			if err := env.Runner.Shutdown(ctx); err != nil {
				return eris.Wrap(err, "sweep: drain")
			}
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "list eligible projects without submitting")
	rootCmd.AddCommand(sweepCmd)
}

type submitter interface {
	Submit(ctx context.Context, project model.Project) (string, error)
}

type sweepResult struct {
	Submitted map[string]string // page ID → run ID
	Skipped   map[string]string // page ID → reason
}

// sweep submits each project. Invalid projects and submit failures are
// recorded and do not stop the sweep.
func sweep(ctx context.Context, s submitter, projects []model.Project) sweepResult {
	res := sweepResult{Submitted: map[string]string{}, Skipped: map[string]string{}}
	for _, p := range projects {
		id, err := s.Submit(ctx, p)
		if err != nil {
			zap.L().Warn("sweep: project not submitted", zap.String("page_id", p.PageID), zap.Error(err))
			res.Skipped[p.PageID] = err.Error()
			continue
		}
		res.Submitted[p.PageID] = id
	}
	return res
}

func formatSweep(w io.Writer, res sweepResult) {
	_, _ = fmt.Fprintf(w, "Submitted: %d\n", len(res.Submitted))
	_, _ = fmt.Fprintf(w, "Skipped:   %d\n", len(res.Skipped))
	for page, reason := range res.Skipped {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", page, reason)
	}
}
