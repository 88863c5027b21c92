package clustering

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

var (
	montreal = models.Coordinates{Lat: 45.5017, Lng: -73.5673}
	quebec   = models.Coordinates{Lat: 46.8139, Lng: -71.2080}
)

func at(id string, c models.Coordinates, overall int) models.BusinessProfile {
	return models.BusinessProfile{ID: id, Coordinates: c, Score: models.CompositeScore{Overall: overall}}
}

func newClusterer(t *testing.T, mutate func(*Config)) *Clusterer {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClusterer(cfg)
	require.NoError(t, err)
	return c
}

// near offsets c by roughly dx, dy meters.
func near(c models.Coordinates, dx, dy float64) models.Coordinates {
	return models.Coordinates{
		Lat: c.Lat + dy/metersPerDegreeLat,
		Lng: c.Lng + dx/(metersPerDegreeLat*math.Cos(c.Lat*math.Pi/180)),
	}
}

func assertPartition(t *testing.T, profiles []models.BusinessProfile, clusters []models.Cluster) {
	t.Helper()
	seen := make(map[string]int)
	total := 0
	for _, c := range clusters {
		assert.Equal(t, len(c.MemberIDs), c.Count)
		total += c.Count
		for _, id := range c.MemberIDs {
			seen[id]++
		}
	}
	assert.Equal(t, len(profiles), total)
	for _, p := range profiles {
		assert.Equal(t, 1, seen[p.ID], "profile %s", p.ID)
	}
}

func TestHaversine(t *testing.T) {
	d := Haversine(montreal, quebec)
	assert.Greater(t, d, 225000.0)
	assert.Less(t, d, 240000.0)
	assert.Equal(t, 0.0, Haversine(montreal, montreal))
	assert.InDelta(t, Haversine(montreal, quebec), Haversine(quebec, montreal), 1e-6)
}

func TestClusterTwoCities(t *testing.T) {
	c := newClusterer(t, nil)
	profiles := []models.BusinessProfile{
		at("mtl-1", near(montreal, 100, 0), 80),
		at("qc-1", near(quebec, 0, 200), 60),
		at("mtl-2", near(montreal, -300, 150), 90),
		at("qc-2", near(quebec, 50, -50), 70),
		at("mtl-3", montreal, 70),
	}

	clusters, err := c.Cluster(context.Background(), profiles, 5000)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, "cluster-0001", clusters[0].ID)
	assert.Equal(t, []string{"mtl-1", "mtl-2", "mtl-3"}, clusters[0].MemberIDs)
	assert.InDelta(t, 80.0, clusters[0].AverageScore, 1e-9)
	assert.Less(t, Haversine(clusters[0].Centroid, montreal), 500.0)

	assert.Equal(t, "cluster-0002", clusters[1].ID)
	assert.Equal(t, []string{"qc-1", "qc-2"}, clusters[1].MemberIDs)
	assert.InDelta(t, 65.0, clusters[1].AverageScore, 1e-9)
	assertPartition(t, profiles, clusters)
}

func TestClusterRadiusExtremes(t *testing.T) {
	c := newClusterer(t, nil)
	profiles := []models.BusinessProfile{
		at("a", montreal, 50),
		at("b", montreal, 60),
		at("c", quebec, 70),
	}

	singletons, err := c.Cluster(context.Background(), profiles, 0)
	require.NoError(t, err)
	assert.Len(t, singletons, 3)
	assertPartition(t, profiles, singletons)

	one, err := c.Cluster(context.Background(), profiles, math.Inf(1))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, 3, one[0].Count)
	assert.InDelta(t, 60.0, one[0].AverageScore, 1e-9)
}

func TestClusterIsDeterministic(t *testing.T) {
	c := newClusterer(t, nil)
	rng := rand.New(rand.NewSource(7))
	profiles := make([]models.BusinessProfile, 0, 200)
	for i := 0; i < 200; i++ {
		base := montreal
		if i%3 == 0 {
			base = quebec
		}
		profiles = append(profiles, at(fmt.Sprintf("biz-%03d", i), near(base, rng.Float64()*20000-10000, rng.Float64()*20000-10000), rng.Intn(101)))
	}

	first, err := c.Cluster(context.Background(), profiles, 3000)
	require.NoError(t, err)
	assertPartition(t, profiles, first)

	shuffled := make([]models.BusinessProfile, len(profiles))
	copy(shuffled, profiles)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	second, err := c.Cluster(context.Background(), shuffled, 3000)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClusterTiledPath(t *testing.T) {
	c := newClusterer(t, func(cfg *Config) { cfg.TileThreshold = 10 })
	rng := rand.New(rand.NewSource(11))
	profiles := make([]models.BusinessProfile, 0, 60)
	for i := 0; i < 60; i++ {
		base := montreal
		if i%2 == 0 {
			base = quebec
		}
		profiles = append(profiles, at(fmt.Sprintf("biz-%02d", i), near(base, rng.Float64()*600-300, rng.Float64()*600-300), 50))
	}

	clusters, err := c.Cluster(context.Background(), profiles, 5000)
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
	assertPartition(t, profiles, clusters)
}

func TestClusterEmptyAndInvalid(t *testing.T) {
	c := newClusterer(t, nil)

	clusters, err := c.Cluster(context.Background(), nil, 1000)
	require.NoError(t, err)
	assert.Empty(t, clusters)

	_, err = c.Cluster(context.Background(), []models.BusinessProfile{at("a", montreal, 1)}, -1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))

	_, err = NewClusterer(Config{RadiusMeters: math.NaN()})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestClusterCancelled(t *testing.T) {
	c := newClusterer(t, func(cfg *Config) { cfg.TileThreshold = 1 })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Cluster(ctx, []models.BusinessProfile{at("a", montreal, 1), at("b", quebec, 2)}, 1000)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCancelled))
}
