package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/lexloop/internal/priority"
)

var statusTop int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remaining weight and the heaviest items",
	RunE:  runStatus,
}

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete saved weights so the next learn starts fresh",
	Long:  "Removes the weights snapshot. The exposure journal is kept.",
	RunE:  runReset,
}

func init() {
	statusCmd.Flags().IntVarP(&statusTop, "top", "n", 10, "number of items to list")
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "confirm deletion")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := statePath(cfg)
	if err != nil {
		return fmt.Errorf("resolve state path: %w", err)
	}

	table, err := priority.Load(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if table == nil {
		fmt.Fprintf(out, "No learning state at %s. Run `lexloop learn` first.\n", path)
		return nil
	}

	mastered, pending := priority.Counts(table)
	fmt.Fprintf(out, "## %s\n\n", path)
	fmt.Fprintf(out, "  sum:      %d\n", priority.TotalRemaining(table))
	fmt.Fprintf(out, "  items:    %d\n", len(table))
	fmt.Fprintf(out, "  mastered: %d\n", mastered)
	fmt.Fprintf(out, "  pending:  %d\n", pending)

	top := priority.Ranked(table, statusTop)
	if len(top) > 0 && top[0].Weight > 0 {
		fmt.Fprintln(out)
		for _, e := range top {
			if e.Weight == 0 {
				break
			}
			fmt.Fprintf(out, "  %4d  %s\n", e.Weight, e.Item)
		}
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := statePath(cfg)
	if err != nil {
		return fmt.Errorf("resolve state path: %w", err)
	}
	if !resetForce {
		return fmt.Errorf("refusing to delete %s without --force", path)
	}

	err = os.Remove(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing to reset at %s.\n", path)
	case err != nil:
		return fmt.Errorf("remove state: %w", err)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", path)
	}
	return nil
}
