package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yks-coach/coach-hub/internal/infrastructure/persistence/postgres"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

func newMigrateCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Manage the report archive schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			if st.cfg.Database.URL == "" {
				return errNoDatabase
			}

			ctx, cancel := st.opContext(cmd)
			defer cancel()

			conn, err := postgres.Open(ctx, st.cfg.Database.URL, postgres.DefaultPoolSettings())
			if err != nil {
				return err
			}
			defer conn.Close()

			m := postgres.NewMigrator(conn)
			out := cmd.OutOrStdout()

			switch action {
			case "down":
				if err := m.Rollback(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "rolled back the newest migration")
			case "status":
				migrations, err := m.Status(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
				for _, mig := range migrations {
					applied := "pending"
					if mig.IsApplied {
						applied = mig.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%03d\t%s\t%s\n", mig.Version, mig.Name, applied)
				}
				return tw.Flush()
			default:
				n, err := m.Migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "applied %d migration(s)\n", n)
			}
			return nil
		},
	}
	return cmd
}
