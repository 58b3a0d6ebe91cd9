package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/powerhit/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	catalogCacheKey  = "exercise-catalog"
	catalogCacheSize = 1024 * 1024 // 1MB, way more than a catalog needs
)

//go:generate mockgen -source=catalog.go -destination=repo_mock_test.go -package=exercises

type repo interface {
	List(ctx context.Context) ([]Exercise, error)
}

// Catalog serves the exercise catalog snapshot. The snapshot is cached so
// every plan generation within the TTL sees exactly the same catalog.
type Catalog struct {
	repo  repo
	cache *freecache.Cache
	ttl   time.Duration
}

func NewCatalog(repo repo, ttl time.Duration) *Catalog {
	return &Catalog{
		repo:  repo,
		cache: freecache.NewCache(catalogCacheSize),
		ttl:   ttl,
	}
}

// List returns the validated catalog. Rows that fail validation are logged and left out.
func (c *Catalog) List(ctx context.Context) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if cached, err := c.cache.Get([]byte(catalogCacheKey)); err == nil {
		var exercises []Exercise
		unmarshalErr := json.Unmarshal(cached, &exercises)
		if unmarshalErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return exercises, nil
		}
		log.Warnf("catalog cache entry corrupt, reloading: %s", unmarshalErr)
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Warnf("catalog cache get: %s", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	all, err := c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}

	exercises := make([]Exercise, 0, len(all))
	for _, e := range all {
		if err := e.Validate(); err != nil {
			log.Errorf("skipping catalog entry: %s", err)
			continue
		}
		exercises = append(exercises, e)
	}

	if c.ttl > 0 {
		exercisesJson, err := json.Marshal(exercises)
		if err != nil {
			return nil, fmt.Errorf("marshal catalog: %w", err)
		}
		if err := c.cache.Set([]byte(catalogCacheKey), exercisesJson, int(c.ttl/time.Second)); err != nil {
			log.Warnf("catalog cache set: %s", err)
		}
	}

	return exercises, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (Exercise, error) {
	exercises, err := c.List(ctx)
	if err != nil {
		return Exercise{}, err
	}
	for _, e := range exercises {
		if e.ID == id {
			return e, nil
		}
	}
	return Exercise{}, ErrExerciseNotFound
}

// Invalidate drops the cached snapshot, the next List hits the repo.
func (c *Catalog) Invalidate() {
	c.cache.Del([]byte(catalogCacheKey))
}
