// internal/intelligence/clustering/clusterer.go
package clustering

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

const (
	DefaultRadiusMeters  = 5000.0
	DefaultTileThreshold = 20000
	DefaultParallelism   = 4

	ctxCheckEvery = 1024
)

type Config struct {
	RadiusMeters float64
	// Inputs larger than TileThreshold are clustered per tile and merged.
	TileThreshold int
	Parallelism   int
}

func DefaultConfig() Config {
	return Config{
		RadiusMeters:  DefaultRadiusMeters,
		TileThreshold: DefaultTileThreshold,
		Parallelism:   DefaultParallelism,
	}
}

// ValidateRadius rejects negative and NaN radii. +Inf is allowed.
func ValidateRadius(radius float64) error {
	if math.IsNaN(radius) {
		return apperrors.NewConfigurationError("cluster radius is NaN")
	}
	if radius < 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("cluster radius must be >= 0, got %g", radius))
	}
	return nil
}

// Clusterer groups businesses by proximity with a deterministic greedy pass.
type Clusterer struct {
	cfg Config
}

func NewClusterer(cfg Config) (*Clusterer, error) {
	if err := ValidateRadius(cfg.RadiusMeters); err != nil {
		return nil, err
	}
	if cfg.TileThreshold <= 0 {
		cfg.TileThreshold = DefaultTileThreshold
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	return &Clusterer{cfg: cfg}, nil
}

// DefaultRadius is the configured radius in meters.
func (c *Clusterer) DefaultRadius() float64 {
	return c.cfg.RadiusMeters
}

// Cluster partitions profiles into clusters of radiusMeters. Every profile ends
// up in exactly one cluster. A radius of 0 yields one cluster per profile and
// +Inf a single cluster.
func (c *Clusterer) Cluster(ctx context.Context, profiles []models.BusinessProfile, radiusMeters float64) ([]models.Cluster, error) {
	if err := ValidateRadius(radiusMeters); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return []models.Cluster{}, nil
	}

	sorted := make([]models.BusinessProfile, len(profiles))
	copy(sorted, profiles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var (
		builders []*builder
		err      error
	)
	if len(sorted) > c.cfg.TileThreshold && radiusMeters > 0 && !math.IsInf(radiusMeters, 1) {
		builders, err = c.clusterTiled(ctx, sorted, radiusMeters)
	} else {
		builders, err = greedy(ctx, sorted, radiusMeters)
	}
	if err != nil {
		return nil, apperrors.NewCancelledError("cluster", err)
	}

	return finalize(builders), nil
}

type builder struct {
	centroid models.Coordinates
	members  []string
	scoreSum int
}

func newBuilder(p models.BusinessProfile) *builder {
	return &builder{
		centroid: p.Coordinates,
		members:  []string{p.ID},
		scoreSum: p.Score.Overall,
	}
}

// add folds p into the running-mean centroid.
func (b *builder) add(p models.BusinessProfile) {
	n := float64(len(b.members) + 1)
	b.centroid.Lat += (p.Coordinates.Lat - b.centroid.Lat) / n
	b.centroid.Lng += (p.Coordinates.Lng - b.centroid.Lng) / n
	b.members = append(b.members, p.ID)
	b.scoreSum += p.Score.Overall
}

// absorb merges other into b with a size-weighted centroid.
func (b *builder) absorb(other *builder) {
	n1 := float64(len(b.members))
	n2 := float64(len(other.members))
	b.centroid.Lat = (b.centroid.Lat*n1 + other.centroid.Lat*n2) / (n1 + n2)
	b.centroid.Lng = (b.centroid.Lng*n1 + other.centroid.Lng*n2) / (n1 + n2)
	b.members = append(b.members, other.members...)
	b.scoreSum += other.scoreSum
}

func (b *builder) firstMember() string {
	first := b.members[0]
	for _, id := range b.members[1:] {
		if id < first {
			first = id
		}
	}
	return first
}

// nearest returns the index of the closest builder within radius, or -1.
// Equal distances resolve to the earliest-created builder.
func nearest(builders []*builder, at models.Coordinates, radius float64) int {
	if radius <= 0 {
		return -1
	}
	best, bestDist := -1, math.Inf(1)
	for i, b := range builders {
		d := Haversine(b.centroid, at)
		if d <= radius && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// greedy clusters profiles already sorted by id.
func greedy(ctx context.Context, profiles []models.BusinessProfile, radius float64) ([]*builder, error) {
	builders := make([]*builder, 0)
	for i, p := range profiles {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if idx := nearest(builders, p.Coordinates, radius); idx >= 0 {
			builders[idx].add(p)
			continue
		}
		builders = append(builders, newBuilder(p))
	}
	return builders, nil
}

func (c *Clusterer) clusterTiled(ctx context.Context, profiles []models.BusinessProfile, radius float64) ([]*builder, error) {
	side := tileSideDegrees(radius)

	tiles := make(map[tileKey][]models.BusinessProfile)
	for _, p := range profiles {
		key := tileOf(p.Coordinates, side)
		tiles[key] = append(tiles[key], p)
	}

	keys := make([]tileKey, 0, len(tiles))
	for k := range tiles {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].row != keys[j].row {
			return keys[i].row < keys[j].row
		}
		return keys[i].col < keys[j].col
	})

	results := make([][]*builder, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Parallelism)
	for i, key := range keys {
		i, members := i, tiles[key]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			built, err := greedy(gctx, members, radius)
			if err != nil {
				return err
			}
			results[i] = built
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []*builder
	for _, r := range results {
		all = append(all, r...)
	}
	return mergeAcrossTiles(ctx, all, radius)
}

// mergeAcrossTiles repeatedly merges clusters whose centroids lie within
// radius until no merge happens. Clusters are visited by smallest member id.
func mergeAcrossTiles(ctx context.Context, builders []*builder, radius float64) ([]*builder, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sort.SliceStable(builders, func(i, j int) bool {
			return builders[i].firstMember() < builders[j].firstMember()
		})

		merged := make([]*builder, 0, len(builders))
		changed := false
		for _, b := range builders {
			if idx := nearest(merged, b.centroid, radius); idx >= 0 {
				merged[idx].absorb(b)
				changed = true
				continue
			}
			merged = append(merged, b)
		}
		builders = merged
		if !changed {
			return builders, nil
		}
	}
}

func finalize(builders []*builder) []models.Cluster {
	for _, b := range builders {
		sort.Strings(b.members)
	}
	sort.SliceStable(builders, func(i, j int) bool {
		return builders[i].members[0] < builders[j].members[0]
	})

	out := make([]models.Cluster, len(builders))
	for i, b := range builders {
		count := len(b.members)
		out[i] = models.Cluster{
			ID:           fmt.Sprintf("cluster-%04d", i+1),
			Centroid:     b.centroid,
			MemberIDs:    b.members,
			AverageScore: math.Round(float64(b.scoreSum)/float64(count)*100) / 100,
			Count:        count,
		}
	}
	return out
}
