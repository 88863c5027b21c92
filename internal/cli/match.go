// internal/cli/match.go
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

// NewMatchCmd classifies one pair of businesses.
func NewMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <business-id> <other-id>",
		Short: "Classify the compatibility of two businesses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			batch, _, err := loadBatch(ctx, cliCtx)
			if err != nil {
				return err
			}
			pop, err := cliCtx.Engine.Population(batch.Profiles)
			if err != nil {
				return err
			}
			match, err := cliCtx.Engine.Match(ctx, pop, args[0], args[1])
			if err != nil {
				return err
			}

			return printResult(cmd, cliCtx, match, func(w io.Writer) error {
				return writeMatches(w, args[0], []models.Match{match})
			})
		},
	}
}

type findMatchesOutput struct {
	BusinessID     string         `json:"businessId"`
	Matches        []models.Match `json:"matches"`
	PopulationSize int            `json:"populationSize"`
}

// NewFindMatchesCmd ranks the population against one business.
func NewFindMatchesCmd() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "find-matches <business-id>",
		Short: "Rank the best matches for a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			pop, err := cliCtx.Engine.Population(batch.Profiles)
			if err != nil {
				return err
			}
			matches, err := cliCtx.Engine.FindMatches(ctx, pop, args[0], topN)
			if err != nil {
				return err
			}

			out := findMatchesOutput{BusinessID: args[0], Matches: matches, PopulationSize: pop.Len()}
			return printResult(cmd, cliCtx, out, func(w io.Writer) error {
				return writeMatches(w, args[0], matches)
			})
		},
	}

	cmd.Flags().IntVarP(&topN, "top", "n", 0, "number of matches (0 uses the configured default)")
	return cmd
}

func writeMatches(w io.Writer, id string, matches []models.Match) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTNER\tCLASSIFICATION\tCOMPATIBILITY\tDELTA\tSYNERGIES")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\t%s\n",
			m.PairKey.Other(id), m.Classification, m.Compatibility, m.ScoreDelta, strings.Join(m.Synergies, "; "))
	}
	return tw.Flush()
}
