package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yks-coach/coach-hub/internal/app"
	"github.com/yks-coach/coach-hub/internal/application/command"
	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/report"
)

type reportFlags struct {
	studentFile string
	student     progress.Student
	format      string
	outDir      string
	noCache     bool
}

func newReportCmd(st *cliState) *cobra.Command {
	f := &reportFlags{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the progress report of one student",
		Long: `Render the progress report of one student and write it to a file.

The student descriptor comes from flags, a JSON file (--student-file) or
both; flags win. Use --out - to write the report to stdout.`,
		Example: `  coachctl report --id 42 --name Ayşe --surname Yılmaz --program Sayısal
  coachctl report --student-file ayse.json --format xlsx --out ./reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			student, err := f.resolveStudent()
			if err != nil {
				return err
			}

			ctx, cancel := st.opContext(cmd)
			defer cancel()

			a, err := app.Build(ctx, st.cfg, st.log, app.Options{DisableCache: f.noCache})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.GenerateReport.Handle(ctx, command.GenerateReportCommand{
				StudentID: student.ID,
				Student:   student,
				Format:    f.format,
				Trigger:   archive.TriggerCLI,
				SkipCache: f.noCache,
			})
			if err != nil {
				return err
			}

			for section, msg := range res.SectionErrors {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s section skipped: %s\n", section, msg)
			}

			if f.outDir == "-" {
				_, err := cmd.OutOrStdout().Write(res.Bytes)
				return err
			}
			path, err := writeReport(f.outDir, res.Filename, res.Bytes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes, %d pages)\n", path, len(res.Bytes), res.Pages)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.studentFile, "student-file", "", "JSON file with the student descriptor")
	fl.StringVar(&f.student.ID, "id", "", "Student id on the coaching platform")
	fl.StringVar(&f.student.Name, "name", "", "First name")
	fl.StringVar(&f.student.Surname, "surname", "", "Surname")
	fl.StringVar(&f.student.Program, "program", "", "Program (bölüm)")
	fl.StringVar(&f.student.Target, "target", "", "Target (hedef)")
	fl.StringVar(&f.student.Notes, "notes", "", "Coach notes")
	fl.StringVarP(&f.format, "format", "f", "pdf", "Output format: pdf or xlsx")
	fl.StringVarP(&f.outDir, "out", "o", ".", "Output directory, or - for stdout")
	fl.BoolVar(&f.noCache, "no-cache", false, "Always render a fresh report")

	return cmd
}

// resolveStudent merges the JSON file and the flags.
func (f *reportFlags) resolveStudent() (progress.Student, error) {
	var s progress.Student
	if f.studentFile != "" {
		var r io.Reader
		if f.studentFile == "-" {
			r = os.Stdin
		} else {
			file, err := os.Open(f.studentFile)
			if err != nil {
				return s, fmt.Errorf("open student file: %w", err)
			}
			defer file.Close()
			r = file
		}
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return s, fmt.Errorf("decode student file: %w", err)
		}
	}

	override := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	override(&s.ID, f.student.ID)
	override(&s.Name, f.student.Name)
	override(&s.Surname, f.student.Surname)
	override(&s.Program, f.student.Program)
	override(&s.Target, f.student.Target)
	override(&s.Notes, f.student.Notes)
	return s, nil
}

func writeReport(dir, filename string, body []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, report.SafeFilename(filename))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
