// internal/cli/cluster.go
package cli

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

type clusterOutput struct {
	Clusters       []models.Cluster `json:"clusters"`
	ClusterCount   int              `json:"clusterCount"`
	RadiusMeters   *float64         `json:"radiusMeters,omitempty"`
	Unbounded      bool             `json:"unbounded"`
	PopulationSize int              `json:"populationSize"`
}

// NewClusterCmd groups businesses by proximity.
func NewClusterCmd() *cobra.Command {
	var (
		radius    float64
		unbounded bool
	)

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Group businesses into proximity clusters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			r := cliCtx.Engine.DefaultRadius()
			switch {
			case unbounded:
				r = math.Inf(1)
			case cmd.Flags().Changed("radius"):
				if radius < 0 {
					return apperrors.NewValidationError("radius", fmt.Sprintf("must be >= 0, got %g", radius))
				}
				r = radius
			}

			batch, _, err := loadBatch(ctx, cliCtx)
			if err != nil {
				return err
			}
			clusters, err := cliCtx.Engine.Cluster(ctx, batch.Profiles, r)
			if err != nil {
				return err
			}

			out := clusterOutput{
				Clusters:       clusters,
				ClusterCount:   len(clusters),
				Unbounded:      math.IsInf(r, 1),
				PopulationSize: len(batch.Profiles),
			}
			if !out.Unbounded {
				out.RadiusMeters = &r
			}
			return printResult(cmd, cliCtx, out, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CLUSTER\tCOUNT\tAVG SCORE\tCENTROID")
				for _, c := range clusters {
					fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.5f,%.5f\n", c.ID, c.Count, c.AverageScore, c.Centroid.Lat, c.Centroid.Lng)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().Float64Var(&radius, "radius", 0, "cluster radius in meters (default from config)")
	cmd.Flags().BoolVar(&unbounded, "unbounded", false, "cluster without a distance limit")
	return cmd
}
