package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/trueprice/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect persisted selection sessions",
}

// -- sessions list --

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions, most recently updated first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		ids, err := st.ListSessions(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "sessions list")
		}
		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tRECIPE\tSALE POINT\tMILK\tDECAF\tSUGAR")
		for _, id := range ids {
			sel, err := st.LoadSelection(ctx, id)
			if err != nil || sel == nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\n",
				id, sel.Recipe, sel.SalePointID, sel.MilkType, sel.IsDecaf, sel.SugarLevel)
		}
		return w.Flush()
	},
}

// -- sessions delete --

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a persisted session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteSelection(cmd.Context(), args[0]); err != nil {
			return eris.Wrap(err, "sessions delete")
		}
		fmt.Fprintf(os.Stderr, "Deleted session %s.\n", args[0])
		return nil
	},
}

func openStore(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("cache"); err != nil {
		return nil, err
	}
	st, err := store.Open(cmd.Context(), storeConfig(cfg.Store))
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func init() {
	sessionsListCmd.Flags().Int("limit", 20, "maximum sessions to list")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
