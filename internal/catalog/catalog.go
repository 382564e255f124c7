// Package catalog maintains the cache-aside materialization of the external
// school and program registry. Collections are built on demand, replaced
// atomically, and served until their TTL elapses or an explicit refresh
// discards them.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vagledaren/vagledaren/internal/fault"
	"github.com/vagledaren/vagledaren/internal/registry"
	"github.com/vagledaren/vagledaren/internal/storage"
)

const (
	keySchools  = "schools"
	keyPrograms = "programs"

	// statusActive is the registry's marker for an operating school unit.
	statusActive = "AKTIV"

	// retryHint is suggested to callers when a catalog-level fetch fails.
	retryHint = 60 * time.Second
)

// SnapshotStore persists built collections across restarts. Optional; a nil
// store disables persistence.
type SnapshotStore interface {
	SaveSnapshot(snap storage.Snapshot) error
	LatestSnapshot(kind string) (*storage.Snapshot, error)
	DeleteSnapshots(kind string) error
}

// Options configures a Cache.
type Options struct {
	SchoolTTL        time.Duration
	ProgramTTL       time.Duration
	FetchConcurrency int
	MaxResults       int
}

// Cache is the catalog cache. Safe for concurrent use: reads share the
// immutable current collection, and concurrent cold-cache builds are
// collapsed into a single registry fetch.
type Cache struct {
	api     registry.API
	store   SnapshotStore
	entries *gocache.Cache
	group   singleflight.Group
	logger  *slog.Logger
	opts    Options
}

// New creates a catalog cache. store may be nil.
func New(logger *slog.Logger, api registry.API, store SnapshotStore, opts Options) *Cache {
	if opts.SchoolTTL <= 0 {
		opts.SchoolTTL = 180 * 24 * time.Hour
	}
	if opts.ProgramTTL <= 0 {
		opts.ProgramTTL = 365 * 24 * time.Hour
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 8
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	return &Cache{
		api:     api,
		store:   store,
		entries: gocache.New(gocache.NoExpiration, 10*time.Minute),
		logger:  logger.With("component", "catalog"),
		opts:    opts,
	}
}

// Search returns schools matching the criteria, populating the cache first
// when needed. Result order follows the registry's summary order.
func (c *Cache) Search(ctx context.Context, criteria Criteria) ([]School, error) {
	schools, err := c.schools(ctx)
	if err != nil {
		return nil, fault.WrapRetryable(fault.CodeSearch, "school search failed", retryHint, err)
	}

	max := criteria.MaxResults
	if max <= 0 || max > c.opts.MaxResults {
		max = c.opts.MaxResults
	}
	return filterSchools(schools, criteria, max), nil
}

// GetByCode returns one school. The cached collection is checked first; on
// absence one direct detail fetch covers units added upstream after the
// last build.
func (c *Cache) GetByCode(ctx context.Context, code string) (*School, error) {
	schools, err := c.schools(ctx)
	if err != nil {
		return nil, fault.WrapRetryable(fault.CodeSearch, "school lookup failed", retryHint, err)
	}
	for i := range schools {
		if schools[i].Code == code {
			return &schools[i], nil
		}
	}

	rec, err := c.api.GetDetail(ctx, code)
	if err != nil {
		if fault.IsCode(err, fault.CodeSchoolNotFound) {
			return nil, err
		}
		if fault.CanRetry(err) {
			return nil, fault.WrapRetryable(fault.CodeSearch, "school lookup failed", retryHint, err)
		}
		return nil, fault.Newf(fault.CodeSchoolNotFound, "school unit %s not found", code)
	}
	school, ok := mapSchool(rec)
	if !ok {
		return nil, fault.Newf(fault.CodeSchoolNotFound, "school unit %s not found", code)
	}
	return &school, nil
}

// Refresh discards the current school collection and rebuilds it
// synchronously, returning the new item count.
func (c *Cache) Refresh(ctx context.Context) (int, error) {
	c.entries.Delete(keySchools)
	schools, err := c.buildSchools(ctx)
	if err != nil {
		refreshesTotal.WithLabelValues(keySchools, "error").Inc()
		// A forced refresh that fails must not be papered over by the
		// pre-refresh snapshot on the next search.
		c.dropSnapshot(keySchools)
		return 0, fault.WrapRetryable(fault.CodeRefresh, "school catalog refresh failed", retryHint, err)
	}
	c.setSchools(schools)
	refreshesTotal.WithLabelValues(keySchools, "success").Inc()
	c.logger.Info("school catalog refreshed", "count", len(schools))
	return len(schools), nil
}

// Programs returns the national program catalog, populating on demand.
func (c *Cache) Programs(ctx context.Context) ([]Program, error) {
	programs, err := c.programs(ctx)
	if err != nil {
		return nil, fault.WrapRetryable(fault.CodeSearch, "program lookup failed", retryHint, err)
	}
	if len(programs) == 0 {
		return nil, fault.New(fault.CodeNoPrograms, "program catalog is empty")
	}
	return programs, nil
}

// ProgramByCode returns one program by its code.
func (c *Cache) ProgramByCode(ctx context.Context, code string) (*Program, error) {
	programs, err := c.Programs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range programs {
		if programs[i].Code == code {
			return &programs[i], nil
		}
	}
	return nil, fault.Newf(fault.CodeProgramNotFound, "program %s not found", code)
}

// RefreshPrograms discards and rebuilds the program collection.
func (c *Cache) RefreshPrograms(ctx context.Context) (int, error) {
	c.entries.Delete(keyPrograms)
	programs, err := c.buildPrograms(ctx)
	if err != nil {
		refreshesTotal.WithLabelValues(keyPrograms, "error").Inc()
		c.dropSnapshot(keyPrograms)
		return 0, fault.WrapRetryable(fault.CodeRefresh, "program catalog refresh failed", retryHint, err)
	}
	c.setPrograms(programs)
	refreshesTotal.WithLabelValues(keyPrograms, "success").Inc()
	c.logger.Info("program catalog refreshed", "count", len(programs))
	return len(programs), nil
}

// schools returns the current school collection, building it on a miss.
// Concurrent cold-cache callers share one build.
func (c *Cache) schools(ctx context.Context) ([]School, error) {
	if v, ok := c.entries.Get(keySchools); ok {
		cacheLookupsTotal.WithLabelValues(keySchools, "hit").Inc()
		return v.([]School), nil
	}
	cacheLookupsTotal.WithLabelValues(keySchools, "miss").Inc()

	v, err, _ := c.group.Do(keySchools, func() (any, error) {
		// Another caller may have finished the build while we queued.
		if v, ok := c.entries.Get(keySchools); ok {
			return v.([]School), nil
		}
		if schools, ok := c.loadSchoolSnapshot(); ok {
			c.setSchools(schools)
			return schools, nil
		}
		schools, err := c.buildSchools(ctx)
		if err != nil {
			return nil, err
		}
		c.setSchools(schools)
		return schools, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]School), nil
}

func (c *Cache) programs(ctx context.Context) ([]Program, error) {
	if v, ok := c.entries.Get(keyPrograms); ok {
		cacheLookupsTotal.WithLabelValues(keyPrograms, "hit").Inc()
		return v.([]Program), nil
	}
	cacheLookupsTotal.WithLabelValues(keyPrograms, "miss").Inc()

	v, err, _ := c.group.Do(keyPrograms, func() (any, error) {
		if v, ok := c.entries.Get(keyPrograms); ok {
			return v.([]Program), nil
		}
		if programs, ok := c.loadProgramSnapshot(); ok {
			c.setPrograms(programs)
			return programs, nil
		}
		programs, err := c.buildPrograms(ctx)
		if err != nil {
			return nil, err
		}
		c.setPrograms(programs)
		return programs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Program), nil
}

func (c *Cache) setSchools(schools []School) {
	c.entries.Set(keySchools, schools, c.opts.SchoolTTL)
	c.saveSnapshot(keySchools, schools, len(schools))
}

func (c *Cache) setPrograms(programs []Program) {
	c.entries.Set(keyPrograms, programs, c.opts.ProgramTTL)
	c.saveSnapshot(keyPrograms, programs, len(programs))
}

// buildSchools fetches the summary list and fans out per-unit detail
// fetches through a bounded worker pool. A single unit's failure is logged
// and dropped; it never fails the batch.
func (c *Cache) buildSchools(ctx context.Context) ([]School, error) {
	start := time.Now()

	summaries, err := c.api.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*School, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.FetchConcurrency)

	for i, summary := range summaries {
		if summary.Status != "" && summary.Status != statusActive {
			continue
		}
		g.Go(func() error {
			rec, err := c.api.GetDetail(gctx, summary.Code)
			if err != nil {
				itemsDroppedTotal.WithLabelValues(keySchools, "fetch_error").Inc()
				c.logger.Warn("dropping school unit, detail fetch failed",
					"code", summary.Code, "error", err)
				return nil
			}
			school, ok := mapSchool(rec)
			if !ok {
				itemsDroppedTotal.WithLabelValues(keySchools, "invalid_record").Inc()
				c.logger.Warn("dropping school unit, record incomplete", "code", summary.Code)
				return nil
			}
			results[i] = &school
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	schools := make([]School, 0, len(summaries))
	for _, s := range results {
		if s != nil {
			schools = append(schools, *s)
		}
	}

	buildDuration.WithLabelValues(keySchools).Observe(time.Since(start).Seconds())
	c.logger.Info("school catalog built",
		"summaries", len(summaries),
		"schools", len(schools),
		"duration", time.Since(start))
	return schools, nil
}

func (c *Cache) buildPrograms(ctx context.Context) ([]Program, error) {
	start := time.Now()

	records, err := c.api.GetPrograms(ctx)
	if err != nil {
		return nil, err
	}

	programs := make([]Program, 0, len(records))
	for _, rec := range records {
		if rec.Code == "" || rec.Name == "" {
			itemsDroppedTotal.WithLabelValues(keyPrograms, "invalid_record").Inc()
			c.logger.Warn("dropping program, record incomplete", "code", rec.Code)
			continue
		}
		paths := make([]StudyPath, 0, len(rec.StudyPaths))
		for _, sp := range rec.StudyPaths {
			paths = append(paths, StudyPath{Code: sp.Code, Name: sp.Name})
		}
		programs = append(programs, Program{Code: rec.Code, Name: rec.Name, StudyPaths: paths})
	}

	buildDuration.WithLabelValues(keyPrograms).Observe(time.Since(start).Seconds())
	return programs, nil
}

// mapSchool validates and converts a registry record. Records missing a
// required field are rejected.
func mapSchool(rec *registry.SchoolRecord) (School, bool) {
	if rec == nil || rec.Code == "" || rec.Name == "" || rec.Municipality == "" {
		return School{}, false
	}
	programs := make([]SchoolProgram, 0, len(rec.Programs))
	for _, p := range rec.Programs {
		if p.Code == "" {
			continue
		}
		programs = append(programs, SchoolProgram{Code: p.Code, Name: p.Name})
	}
	return School{
		Code:         rec.Code,
		Name:         rec.Name,
		Municipality: rec.Municipality,
		Website:      rec.Website,
		Email:        rec.Email,
		Phone:        rec.Phone,
		Address:      rec.Address,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		Programs:     programs,
	}, true
}

func (c *Cache) saveSnapshot(kind string, v any, count int) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to marshal catalog snapshot", "kind", kind, "error", err)
		return
	}
	if err := c.store.SaveSnapshot(storage.Snapshot{Kind: kind, Data: data, ItemCount: count}); err != nil {
		c.logger.Warn("failed to persist catalog snapshot", "kind", kind, "error", err)
	}
}

func (c *Cache) dropSnapshot(kind string) {
	if c.store == nil {
		return
	}
	if err := c.store.DeleteSnapshots(kind); err != nil {
		c.logger.Warn("failed to drop catalog snapshot", "kind", kind, "error", err)
	}
}

func (c *Cache) loadSchoolSnapshot() ([]School, bool) {
	snap := c.freshSnapshot(keySchools, c.opts.SchoolTTL)
	if snap == nil {
		return nil, false
	}
	var schools []School
	if err := json.Unmarshal(snap.Data, &schools); err != nil {
		c.logger.Warn("failed to decode school snapshot", "error", err)
		return nil, false
	}
	c.logger.Info("school catalog restored from snapshot",
		"count", len(schools), "fetched_at", snap.FetchedAt)
	return schools, true
}

func (c *Cache) loadProgramSnapshot() ([]Program, bool) {
	snap := c.freshSnapshot(keyPrograms, c.opts.ProgramTTL)
	if snap == nil {
		return nil, false
	}
	var programs []Program
	if err := json.Unmarshal(snap.Data, &programs); err != nil {
		c.logger.Warn("failed to decode program snapshot", "error", err)
		return nil, false
	}
	return programs, true
}

func (c *Cache) freshSnapshot(kind string, ttl time.Duration) *storage.Snapshot {
	if c.store == nil {
		return nil
	}
	snap, err := c.store.LatestSnapshot(kind)
	if err != nil {
		c.logger.Warn("failed to load catalog snapshot", "kind", kind, "error", err)
		return nil
	}
	if snap == nil || snap.ItemCount == 0 || time.Since(snap.FetchedAt) > ttl {
		return nil
	}
	return snap
}
