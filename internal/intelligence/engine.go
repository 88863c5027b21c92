// internal/intelligence/engine.go
package intelligence

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/intelligence/cache"
	"iluma-intelligence/internal/intelligence/clustering"
	"iluma-intelligence/internal/intelligence/matching"
	"iluma-intelligence/internal/intelligence/normalizer"
	"iluma-intelligence/internal/intelligence/scoring"
	"iluma-intelligence/internal/intelligence/stats"
	"iluma-intelligence/internal/models"
)

const (
	OpScore           = "score"
	OpScorePopulation = "score_population"
	OpMatch           = "match"
	OpFindMatches     = "find_matches"
	OpCluster         = "cluster"
	OpStats           = "stats"
)

// Recorder receives engine measurements.
type Recorder interface {
	ObserveOperation(operation, status string, d time.Duration)
	AddValidationError(field string)
	RecordCache(operation string, hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) AddValidationError(string)                      {}
func (nopRecorder) RecordCache(string, bool)                       {}

type Option func(*Engine)

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithCache memoizes cluster and stats results by population and configuration fingerprint.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.memo = cache.NewMemo(c)
		}
	}
}

// Engine wires the normalizer, aggregator, matcher, clusterer and reporter
// behind one configuration. All methods are safe for concurrent use.
type Engine struct {
	cfg        Config
	configHash string

	normalizer *normalizer.Normalizer
	aggregator *scoring.Aggregator
	matcher    *matching.Matcher
	clusterer  *clustering.Clusterer
	reporter   *stats.Reporter

	logger   logger.Logger
	recorder Recorder
	tracer   trace.Tracer
	memo     *cache.Memo
}

// NewEngine validates cfg and builds every component. Any invalid setting
// fails construction with a CONFIGURATION_ERROR.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	aggregator, err := scoring.NewAggregator(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	matcher, err := matching.NewMatcher(cfg.Matching)
	if err != nil {
		return nil, err
	}
	clusterer, err := clustering.NewClusterer(cfg.Clustering)
	if err != nil {
		return nil, err
	}
	if cfg.TopN <= 0 {
		cfg.TopN = stats.DefaultTopN
	}
	hash, err := cfg.fingerprint()
	if err != nil {
		return nil, apperrors.NewConfigurationError(err.Error())
	}

	e := &Engine{
		cfg:        cfg,
		configHash: hash,
		normalizer: normalizer.New(),
		aggregator: aggregator,
		matcher:    matcher,
		clusterer:  clusterer,
		reporter:   stats.NewReporter(cfg.TopN),
		logger:     logger.NewNoOpLogger(),
		recorder:   nopRecorder{},
		tracer:     noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithFields(map[string]interface{}{"component": "intelligence"})
	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Score computes the composite score of a profile's metrics.
func (e *Engine) Score(profile models.BusinessProfile, previous *models.CompositeScore) models.CompositeScore {
	start := time.Now()
	score := e.aggregator.Score(profile.Metrics, previous)
	e.recorder.ObserveOperation(OpScore, "ok", time.Since(start))
	return score
}

// ScoreMetrics normalizes raw metric input and scores it. Field errors are
// returned in the normalizer result; the score uses the accepted fields.
func (e *Engine) ScoreMetrics(raw map[string]interface{}, previous *models.CompositeScore) (models.CompositeScore, normalizer.Result) {
	start := time.Now()
	res := e.normalizer.Normalize(raw)
	return e.scoreNormalized(res, previous, start), res
}

func (e *Engine) scoreNormalized(res normalizer.Result, previous *models.CompositeScore, start time.Time) models.CompositeScore {
	for _, fieldErr := range res.Errors {
		e.recorder.AddValidationError(fieldErr.Field())
	}
	score := e.aggregator.Score(res.Metrics, previous)
	e.recorder.ObserveOperation(OpScore, "ok", time.Since(start))
	return score
}

// Population builds an id-indexed snapshot for match queries.
func (e *Engine) Population(profiles []models.BusinessProfile) (*models.Population, error) {
	return models.NewPopulation(profiles)
}

// Match classifies two businesses of the population.
func (e *Engine) Match(ctx context.Context, pop *models.Population, idA, idB string) (models.Match, error) {
	_, span := e.tracer.Start(ctx, "intelligence.match", trace.WithAttributes(
		attribute.String("business.a", idA),
		attribute.String("business.b", idB),
	))
	defer span.End()

	start := time.Now()
	match, err := e.matcher.Match(pop, idA, idB)
	e.finish(span, OpMatch, start, err, map[string]interface{}{"pairKey": models.NewPairKey(idA, idB).String()})
	return match, err
}

// FindMatches ranks the population against id. topN 0 uses the configured default.
func (e *Engine) FindMatches(ctx context.Context, pop *models.Population, id string, topN int) ([]models.Match, error) {
	ctx, span := e.tracer.Start(ctx, "intelligence.find_matches", trace.WithAttributes(
		attribute.String("business.id", id),
		attribute.Int("population.size", pop.Len()),
	))
	defer span.End()

	if topN == 0 {
		topN = e.cfg.TopN
	}
	start := time.Now()
	matches, err := e.matcher.FindMatches(ctx, pop, id, topN)
	e.finish(span, OpFindMatches, start, err, map[string]interface{}{
		"businessId": id,
		"population": pop.Len(),
		"matches":    len(matches),
	})
	return matches, err
}

// DefaultRadius is the configured cluster radius in meters.
func (e *Engine) DefaultRadius() float64 {
	return e.clusterer.DefaultRadius()
}

// Cluster groups profiles within radiusMeters of each other.
func (e *Engine) Cluster(ctx context.Context, profiles []models.BusinessProfile, radiusMeters float64) ([]models.Cluster, error) {
	ctx, span := e.tracer.Start(ctx, "intelligence.cluster", trace.WithAttributes(
		attribute.Int("population.size", len(profiles)),
		attribute.Float64("cluster.radius_m", radiusMeters),
	))
	defer span.End()

	start := time.Now()
	clusters, err := memoize(ctx, e, OpCluster, profiles, []interface{}{strconv.FormatFloat(radiusMeters, 'g', -1, 64)},
		func(ctx context.Context) ([]models.Cluster, error) {
			return e.clusterer.Cluster(ctx, profiles, radiusMeters)
		})
	e.finish(span, OpCluster, start, err, map[string]interface{}{
		"population": len(profiles),
		"clusters":   len(clusters),
	})
	if err != nil {
		return nil, err
	}
	return clusters, nil
}

// Stats reports over the profiles matching filter. topN 0 uses the configured default.
func (e *Engine) Stats(ctx context.Context, profiles []models.BusinessProfile, filter stats.Filter, topN int) (models.StatsReport, error) {
	ctx, span := e.tracer.Start(ctx, "intelligence.stats", trace.WithAttributes(
		attribute.Int("population.size", len(profiles)),
	))
	defer span.End()

	if topN <= 0 {
		topN = e.cfg.TopN
	}
	start := time.Now()
	report, err := memoize(ctx, e, OpStats, profiles, []interface{}{filter, topN},
		func(context.Context) (models.StatsReport, error) {
			return e.reporter.Generate(stats.ApplyFilter(profiles, filter), topN), nil
		})
	e.finish(span, OpStats, start, err, map[string]interface{}{
		"population": len(profiles),
		"total":      report.Total,
	})
	return report, err
}

// memoize serves compute through the result cache when one is configured. The
// key covers the operation, the engine configuration, the population version
// and the call parameters.
func memoize[T any](ctx context.Context, e *Engine, op string, profiles []models.BusinessProfile, params []interface{}, compute func(context.Context) (T, error)) (T, error) {
	if e.memo == nil {
		return compute(ctx)
	}

	version, err := cache.PopulationVersion(profiles)
	if err != nil {
		return compute(ctx)
	}
	key, err := cache.Fingerprint(append([]interface{}{op, e.configHash, version}, params...)...)
	if err != nil {
		return compute(ctx)
	}

	var out T
	hit, err := e.memo.Do(ctx, op+":"+key, &out, func(ctx context.Context) (interface{}, error) {
		v, err := compute(ctx)
		return v, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	e.recorder.RecordCache(op, hit)
	return out, nil
}

func (e *Engine) finish(span trace.Span, op string, start time.Time, err error, fields map[string]interface{}) {
	status := "ok"
	if err != nil {
		status = string(apperrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn(op+" failed", mergeFields(fields, map[string]interface{}{"error": err.Error()}))
	}
	elapsed := time.Since(start)
	e.recorder.ObserveOperation(op, status, elapsed)
	if err == nil {
		logger.LogDuration(e.logger, op+" completed", start, e.cfg.SlowOperation, fields)
	}
}

func mergeFields(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
