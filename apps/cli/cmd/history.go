package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitbench/packages/db"
	"github.com/abdul-hamid-achik/hitbench/packages/output"
)

var (
	historyDBFlag    string
	historyLimitFlag int
	historySuites    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded benchmark runs",
	Long: `Show runs recorded with "hitbench run --db", newest first.

Examples:
  hitbench history --db history.db
  hitbench history --db history.db --limit 5 --suites`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("HITBENCH_DB", ""), "SQLite history database (env: HITBENCH_DB)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Maximum number of iterations to show")
	historyCmd.Flags().BoolVar(&historySuites, "suites", false, "Show suite totals of every run")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	if historyDBFlag == "" {
		return withExitCode(ExitUsageError, fmt.Errorf("--db is required"))
	}

	client, err := db.NewClient(historyDBFlag)
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("opening history database: %w", err))
	}
	defer client.Close()

	runs, err := client.ListRuns(cmd.Context(), historyLimitFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tITER\tSTARTED\tMODE\tFILE\tGEOMEAN\tSCORE")
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			id, r.Iteration, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode, r.SuiteFile,
			output.FormatMs(r.GeomeanMs), output.FormatScore(r.Score))
		if historySuites {
			for _, s := range r.Suites {
				fmt.Fprintf(tw, "\t\t\t\t  %s\t%s\t\n", s.Suite, output.FormatMs(s.TotalMs))
			}
		}
	}
	return tw.Flush()
}
