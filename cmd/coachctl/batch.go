package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yks-coach/coach-hub/internal/app"
	"github.com/yks-coach/coach-hub/internal/infrastructure/scheduler/jobs"
)

func newBatchCmd(st *cliState) *cobra.Command {
	var outDir string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the weekly report batch once",
		Long: `Render the report of every student on the coaching platform, the same
way the scheduled weekly batch does, and write them under <out>/<date>/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opContext(cmd)
			defer cancel()

			a, err := app.Build(ctx, st.cfg, st.log, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if outDir == "" {
				outDir = st.cfg.Report.OutputDir
			}
			if concurrency <= 0 {
				concurrency = st.cfg.Scheduler.MaxConcurrent
			}

			job := jobs.NewWeeklyReportsJob(a.Coach, a.GenerateReport, a.Archive, st.log, jobs.WeeklyReportsConfig{
				OutputDir:   outDir,
				Concurrency: concurrency,
			})
			runErr := job.Run(ctx)

			if stats, ok := job.LastStats(); ok {
				out := cmd.OutOrStdout()
				b := stats.Batch
				fmt.Fprintf(out, "batch %s: %d students, %d succeeded, %d failed\n",
					b.ID, b.Students, b.Succeeded, b.Failed)

				files := append([]string(nil), stats.Files...)
				sort.Strings(files)
				for _, f := range files {
					fmt.Fprintln(out, "  ", f)
				}
				for id, err := range stats.Failures {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", id, err)
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: REPORT_OUTPUT_DIR)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Reports rendered in parallel (default: SCHEDULER_MAX_CONCURRENT)")
	return cmd
}
