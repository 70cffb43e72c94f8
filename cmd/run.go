package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/config"
	"github.com/sells-group/competitor-intel/internal/model"
)

var (
	runBusiness string
	runLink     string
	runProject  string
	runDue      string
	runPage     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a competitor report for one project in the foreground",
	Example: `  compintel run --business "Acme Robotics" --link https://acme-robotics.example --project "Acme Robotics"
  compintel run --page 0f6b2c1e-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeRun); err != nil {
			return err
		}
		if runPage == "" && (runBusiness == "" || runLink == "") {
			return eris.New("run: either --page or both --business and --link are required")
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, envOptions{pipeline: true})
		if err != nil {
			return err
		}
		defer env.Close()

		project := model.Project{
			ProjectName:  runProject,
			BusinessName: runBusiness,
			Link:         runLink,
			DueDate:      runDue,
		}
		if runPage != "" {
			if env.Tracker == nil {
				return eris.New("run: --page requires notion.token")
			}
			p, err := env.Tracker.Project(ctx, runPage)
			if err != nil {
				return eris.Wrap(err, "run: load project")
			}
			project = *p
		}

		run, err := env.Runner.RunNow(ctx, project)
		if run != nil {
			zap.L().Info("run finished",
				zap.String("run_id", run.ID),
				zap.String("status", string(run.Status)),
				zap.String("artifact", run.ArtifactPath),
			)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(toRunResponse(*run)); encErr != nil && err == nil {
				err = encErr
			}
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runBusiness, "business", "", "business name to analyze")
	runCmd.Flags().StringVar(&runLink, "link", "", "business website URL")
	runCmd.Flags().StringVar(&runProject, "project", "", "project name (names the report file)")
	runCmd.Flags().StringVar(&runDue, "due", "", "project due date")
	runCmd.Flags().StringVar(&runPage, "page", "", "Notion project page ID (replaces the other flags)")
	runCmd.MarkFlagsMutuallyExclusive("page", "business")
	runCmd.MarkFlagsMutuallyExclusive("page", "link")
	rootCmd.AddCommand(runCmd)
}
