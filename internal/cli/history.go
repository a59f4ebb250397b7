package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/lexloop/internal/store"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs, or the exposures of one run",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of runs")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the exposures of this run ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if historyRun != "" {
		return printRun(out, db, historyRun)
	}

	runs, err := db.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs yet.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %-9s %4d exposures  (%d items)\n",
			r.ID, stamp(r.StartedAt), r.Status, r.Exposures, r.VocabSize)
	}
	return nil
}

func printRun(out io.Writer, db *store.DB, id string) error {
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}
	exps, err := db.RunExposures(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "## %s (%s)\n\n", run.ID, run.Status)
	for _, e := range exps {
		if e.Status == store.ExposureFailed {
			fmt.Fprintf(out, "  %s  %-24s failed: %s\n", stamp(e.CreatedAt), e.Item, e.Error)
			continue
		}
		fmt.Fprintf(out, "  %s  %-24s %d -> %d\n", stamp(e.CreatedAt), e.Item, e.WeightBefore, e.WeightAfter)
	}
	return nil
}

func stamp(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
