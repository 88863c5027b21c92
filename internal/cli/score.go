// internal/cli/score.go
package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/models"
	"iluma-intelligence/internal/repository"
)

type scoreRow struct {
	ID          string                `json:"id"`
	Name        string                `json:"name,omitempty"`
	Sector      string                `json:"sector"`
	City        string                `json:"city"`
	Score       models.CompositeScore `json:"score"`
	PartialData bool                  `json:"partialData"`
}

type scoreOutput struct {
	BatchID  string                      `json:"batchId"`
	Scores   []scoreRow                  `json:"scores"`
	Rejected int                         `json:"rejected"`
	Reports  []intelligence.RecordReport `json:"reports,omitempty"`
	Skipped  []repository.RecordIssue    `json:"skipped,omitempty"`
}

// NewScoreCmd scores every record of the input file.
func NewScoreCmd() *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute composite scores for business records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			batch, issues, err := loadBatch(ctx, cliCtx)
			if err != nil {
				return err
			}

			want := make(map[string]bool, len(ids))
			for _, id := range ids {
				want[id] = true
			}
			out := scoreOutput{
				BatchID:  batch.BatchID,
				Scores:   make([]scoreRow, 0, len(batch.Profiles)),
				Rejected: batch.Rejected(),
				Reports:  batch.Reports,
				Skipped:  issues,
			}
			for _, p := range batch.Profiles {
				if len(want) > 0 && !want[p.ID] {
					continue
				}
				out.Scores = append(out.Scores, scoreRow{
					ID:          p.ID,
					Name:        p.Name,
					Sector:      p.Sector,
					City:        p.City,
					Score:       p.Score,
					PartialData: p.Score.PartialData(),
				})
			}

			return printResult(cmd, cliCtx, out, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSECTOR\tCITY\tOVERALL\tTREND\tCHANGE")
				for _, row := range out.Scores {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%.1f%%\n",
						row.ID, row.Sector, row.City, row.Score.Overall, row.Score.TrendDirection, row.Score.TrendPercentage)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "id", nil, "only print these business ids")
	return cmd
}
