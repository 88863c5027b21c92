// internal/cli/stats.go
package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/intelligence/stats"
	"iluma-intelligence/internal/models"
)

// NewStatsCmd builds an aggregate report over the (filtered) records.
func NewStatsCmd() *cobra.Command {
	var (
		filter     stats.Filter
		potentials []string
		statuses   []string
		minScore   int
		maxScore   int
		topN       int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report distributions, opportunities and top leads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range potentials {
				filter.Potentials = append(filter.Potentials, models.Potential(p))
			}
			for _, s := range statuses {
				filter.Statuses = append(filter.Statuses, models.Status(s))
			}
			if cmd.Flags().Changed("min-score") {
				filter.MinScore = &minScore
			}
			if cmd.Flags().Changed("max-score") {
				filter.MaxScore = &maxScore
			}
			if filter.MinScore != nil && filter.MaxScore != nil && minScore > maxScore {
				return apperrors.NewValidationError("min-score", fmt.Sprintf("%d is above max-score %d", minScore, maxScore))
			}
			if topN < 0 {
				return apperrors.NewValidationError("top", fmt.Sprintf("must be >= 0, got %d", topN))
			}

			cliCtx, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			batch, _, err := loadBatch(ctx, cliCtx)
			if err != nil {
				return err
			}
			report, err := cliCtx.Engine.Stats(ctx, batch.Profiles, filter, topN)
			if err != nil {
				return err
			}

			return printResult(cmd, cliCtx, report, func(w io.Writer) error {
				return writeReport(w, report)
			})
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&filter.Sectors, "sector", nil, "only these sectors")
	f.StringSliceVar(&filter.Cities, "city", nil, "only these cities")
	f.StringSliceVar(&potentials, "potential", nil, "only these potentials (low|medium|high)")
	f.StringSliceVar(&statuses, "status", nil, "only these statuses")
	f.IntVar(&minScore, "min-score", 0, "minimum overall score")
	f.IntVar(&maxScore, "max-score", 100, "maximum overall score")
	f.IntVarP(&topN, "top", "n", 0, "number of leads and top sectors (0 uses the configured default)")
	return cmd
}

func writeReport(w io.Writer, report models.StatsReport) error {
	fmt.Fprintf(w, "Businesses: %d  Average score: %.2f  Conversion opportunities: %d\n",
		report.Total, report.AverageScore, report.ConversionOpportunities)
	fmt.Fprintf(w, "Score distribution: high %d, medium %d, low %d\n\n",
		report.ScoreDistribution.High, report.ScoreDistribution.Medium, report.ScoreDistribution.Low)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEAD\tSECTOR\tCITY\tOVERALL\tPOTENTIAL\tSTATUS")
	for _, l := range report.HighPotentialLeads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", l.ID, l.Sector, l.City, l.Overall, l.Potential, l.Status)
	}
	return tw.Flush()
}
