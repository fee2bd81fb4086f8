package commands

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/presentation/formatter"
	"github.com/spf13/cobra"
)

var (
	queryOutput  string
	queryMaxRows int

	queryCmd = &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL query over the visits and journeys tables",
		Long: `Load the export into an in-memory SQLite database and run one SELECT statement.

Column names are the table headings in snake case, for example "location name" becomes
location_name and "visit duration (in minutes)" becomes visit_duration_in_minutes.

Examples:
  go-timeline-chat query "SELECT country, COUNT(*) AS visits FROM visits GROUP BY country ORDER BY visits DESC"
  go-timeline-chat query --output csv "SELECT * FROM journeys WHERE start_year = 2019"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuery,
	}
)

func init() {
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "table",
		"Output format (table, csv, json)")
	queryCmd.Flags().IntVar(&queryMaxRows, "max-rows", 1000,
		"Maximum rows to print (0 = unlimited)")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryOutput == "summary" {
		return fmt.Errorf("summary output is not available for queries")
	}
	f, err := formatter.New(queryOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	_, ds, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), ds)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.Query(cmd.Context(), strings.Join(args, " "), queryMaxRows)
	if err != nil {
		return err
	}
	if err := f.Format(cmd.OutOrStdout(), &formatter.Input{Tables: []model.Table{res.Table()}}); err != nil {
		return err
	}
	if res.Truncated {
		fmt.Fprintf(cmd.ErrOrStderr(), "Only the first %d rows are shown\n", queryMaxRows)
	}
	return nil
}
