package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/competitor-intel/internal/artifact"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List generated report files, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := artifact.NewStore(cfg.Report.OutputDir, nil).List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(os.Stderr, "No reports found.")
			return nil
		}
		formatReports(os.Stdout, infos)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
}

func formatReports(out io.Writer, infos []artifact.Info) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
	for _, i := range infos {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", i.Name, i.Size, i.ModTime.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
