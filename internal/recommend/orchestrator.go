// Package recommend sequences one recommendation request: cache lookup,
// grounded model call, evidence extraction, parsing, verification, optional
// description enrichment and cache write.
//
// It is the only package that calls the generative model.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mohammad-safakhou/azadi/internal/cache"
	"github.com/mohammad-safakhou/azadi/internal/evidence"
	"github.com/mohammad-safakhou/azadi/internal/helpers"
	"github.com/mohammad-safakhou/azadi/internal/issues"
	"github.com/mohammad-safakhou/azadi/internal/llm"
	"github.com/mohammad-safakhou/azadi/internal/logging"
	"github.com/mohammad-safakhou/azadi/internal/parser"
	"github.com/mohammad-safakhou/azadi/internal/verify"
	"github.com/mohammad-safakhou/azadi/models"
)

var (
	// ErrNoIssues is returned for an empty IssueSet. No model call is made.
	ErrNoIssues = errors.New("please provide an array of issues (topics from the videos)")
	// ErrNoCity is returned for a protest request without a city.
	ErrNoCity = errors.New("please provide a city")
)

// Request is one recommendation request.
type Request struct {
	Kind   models.Kind
	Issues []string
	// City is required for protests and ignored otherwise.
	City string
}

// Key returns the cache key for r.
func (r Request) Key() string {
	if r.Kind == models.KindProtests {
		return issues.CityFingerprint(r.City, r.Issues)
	}
	return issues.Fingerprint(r.Issues)
}

// Result is a finished request. Empty is set when nothing survived
// verification; such results are never cached.
type Result struct {
	Batch  models.Batch
	Cached bool
	Empty  bool
}

// Caches holds one Result Cache per kind.
type Caches struct {
	Articles  *cache.Cache
	Charities *cache.Cache
	Protests  *cache.Cache
}

func (c Caches) forKind(k models.Kind) *cache.Cache {
	switch k {
	case models.KindArticles:
		return c.Articles
	case models.KindCharities:
		return c.Charities
	case models.KindProtests:
		return c.Protests
	}
	return nil
}

// Options tunes the orchestrator.
type Options struct {
	ArticlesLimit      int
	CharitiesLimit     int
	ProtestsLimit      int
	EnforceFutureDates bool

	SearchTemperature float64
	SearchMaxTokens   int
	EnrichTemperature float64
	EnrichMaxTokens   int

	// ComputeTimeout bounds one shared computation (model calls included).
	// Defaults to two minutes.
	ComputeTimeout time.Duration

	// Extractor defaults to evidence.NewExtractor().
	Extractor *evidence.Extractor
	// Metrics defaults to unregistered collectors.
	Metrics *Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.ArticlesLimit <= 0 {
		o.ArticlesLimit = 7
	}
	if o.CharitiesLimit <= 0 {
		o.CharitiesLimit = 6
	}
	if o.ProtestsLimit <= 0 {
		o.ProtestsLimit = 5
	}
	if o.SearchMaxTokens <= 0 {
		o.SearchMaxTokens = 2048
	}
	if o.EnrichMaxTokens <= 0 {
		o.EnrichMaxTokens = 1024
	}
	if o.ComputeTimeout <= 0 {
		o.ComputeTimeout = 2 * time.Minute
	}
	if o.Extractor == nil {
		o.Extractor = evidence.NewExtractor()
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics(nil)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Orchestrator serves recommendation requests.
type Orchestrator struct {
	model  llm.Model
	caches Caches
	opts   Options

	locks helpers.KeyedMutex
	group singleflight.Group
}

// New returns an Orchestrator. A nil model is allowed: every request then
// fails with llm.ConfigurationError before reaching the cache or the model.
func New(model llm.Model, caches Caches, opts Options) *Orchestrator {
	opts.setDefaults()
	return &Orchestrator{
		model:  model,
		caches: caches,
		opts:   opts,
	}
}

// Recommend runs req to completion.
func (o *Orchestrator) Recommend(ctx context.Context, req Request) (Result, error) {
	c := o.caches.forKind(req.Kind)
	if c == nil {
		return Result{}, fmt.Errorf("%w: %q", models.ErrUnknownKind, req.Kind)
	}
	if o.model == nil {
		o.count(req.Kind, "config_error")
		return Result{}, llm.ConfigurationError{Setting: "llm.gemini.api_key"}
	}
	key := req.Key()
	if key == issues.EmptyKey {
		return Result{}, ErrNoIssues
	}
	if req.Kind == models.KindProtests && strings.TrimSpace(req.City) == "" {
		return Result{}, ErrNoCity
	}

	if batch, ok := o.lookup(ctx, c, key); ok {
		o.count(req.Kind, "hit")
		return Result{Batch: batch, Cached: true}, nil
	}

	// The flight outlives any single caller: a caller that goes away stops
	// waiting, but callers that joined the same flight still get the result.
	ch := o.group.DoChan(string(req.Kind)+"|"+key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.ComputeTimeout)
		defer cancel()
		return o.compute(fctx, c, req, key)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			o.count(req.Kind, "error")
			return Result{}, r.Err
		}
		res := r.Val.(Result)
		switch {
		case res.Cached:
			o.count(req.Kind, "hit")
		case res.Empty:
			o.count(req.Kind, "empty")
		default:
			o.count(req.Kind, "miss")
		}
		return res, nil
	}
}

func (o *Orchestrator) count(kind models.Kind, outcome string) {
	o.opts.Metrics.Requests.WithLabelValues(string(kind), outcome).Inc()
}

func (o *Orchestrator) lookup(ctx context.Context, c *cache.Cache, key string) (models.Batch, bool) {
	batch, ok, err := c.Get(ctx, key)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", string(c.Kind())).Msg("cache read failed; treating as miss")
	}
	result := "miss"
	if ok {
		result = "hit"
	}
	o.opts.Metrics.CacheLookups.WithLabelValues(string(c.Kind()), result).Inc()
	return batch, ok
}

// compute holds the per-key lock from the second cache check until the
// write, so one key is never computed twice concurrently.
func (o *Orchestrator) compute(ctx context.Context, c *cache.Cache, req Request, key string) (Result, error) {
	unlock := o.locks.Lock(string(req.Kind) + "|" + key)
	defer unlock()

	if batch, ok := o.lookup(ctx, c, key); ok {
		return Result{Batch: batch, Cached: true}, nil
	}

	log := logging.Ctx(ctx).With().Str("kind", string(req.Kind)).Logger()
	members := issues.Normalize(req.Issues)

	resp, err := o.generate(ctx, req.Kind, "primary", llm.Request{
		Prompt:      o.prompt(req, members),
		Grounding:   true,
		Temperature: o.opts.SearchTemperature,
		MaxTokens:   o.opts.SearchMaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Msg("model call failed")
		return Result{}, err
	}

	ev := o.opts.Extractor.Extract(resp)
	raw, stage := parser.ParseStage(resp.Text)
	o.opts.Metrics.ParserStages.WithLabelValues(string(req.Kind), string(stage)).Inc()
	recs := make([]parser.Record, 0, len(raw))
	for _, r := range raw {
		recs = append(recs, parser.Normalize(r))
	}

	batch := models.Batch{Kind: req.Kind}
	var report verify.Report
	switch req.Kind {
	case models.KindArticles:
		batch.Articles, report = verify.Articles(recs, ev, o.opts.ArticlesLimit)
		if len(batch.Articles) == 0 && !ev.Scraped && ev.Len() > 0 {
			batch.Articles, report = verify.Articles(citationRecords(ev), ev, o.opts.ArticlesLimit)
			log.Debug().Int("citations", ev.Len()).Msg("built articles from grounding citations")
		}
		if len(batch.Articles) > 0 {
			o.enrich(ctx, req.Kind, members, batch.Articles)
		}
	case models.KindCharities:
		batch.Charities, report = verify.Charities(recs, ev, o.opts.CharitiesLimit)
	case models.KindProtests:
		batch.Protests, report = verify.Protests(recs, ev, verify.ProtestOptions{
			City:               req.City,
			Now:                o.opts.Now(),
			EnforceFutureDates: o.opts.EnforceFutureDates,
			Limit:              o.opts.ProtestsLimit,
		})
	}
	for reason, n := range report.Dropped {
		o.opts.Metrics.Dropped.WithLabelValues(string(req.Kind), string(reason)).Add(float64(n))
	}

	log.Info().
		Str("cache", "miss").
		Str("parser_stage", string(stage)).
		Int("parsed", len(recs)).
		Int("evidence", ev.Len()).
		Bool("scraped_evidence", ev.Scraped).
		Int("records", batch.Len()).
		Int("dropped", report.DroppedTotal()).
		Msg("recommendations computed")

	if batch.Len() == 0 {
		return Result{Batch: batch, Empty: true}, nil
	}
	if err := c.Put(ctx, key, batch); err != nil {
		log.Warn().Err(err).Msg("cache write failed")
	}
	return Result{Batch: batch}, nil
}

func (o *Orchestrator) prompt(req Request, members []string) string {
	switch req.Kind {
	case models.KindCharities:
		return charitiesPrompt(members, o.opts.CharitiesLimit)
	case models.KindProtests:
		return protestsPrompt(members, strings.TrimSpace(req.City), o.opts.Now(), o.opts.ProtestsLimit)
	}
	return articlesPrompt(members, o.opts.ArticlesLimit)
}

func (o *Orchestrator) generate(ctx context.Context, kind models.Kind, call string, req llm.Request) (*llm.Response, error) {
	resp, err := o.model.Generate(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.opts.Metrics.ModelCalls.WithLabelValues(string(kind), call, outcome).Inc()
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &llm.Response{}
	}
	return resp, nil
}

// enrich asks for one sentence per article, in order, and attaches them by
// index. Any failure or a count mismatch leaves the articles unchanged.
func (o *Orchestrator) enrich(ctx context.Context, kind models.Kind, members []string, articles []models.Article) {
	log := logging.Ctx(ctx)
	resp, err := o.generate(ctx, kind, "enrich", llm.Request{
		Prompt:      enrichPrompt(members, articles),
		Temperature: o.opts.EnrichTemperature,
		MaxTokens:   o.opts.EnrichMaxTokens,
		JSON:        true,
	})
	if err != nil {
		log.Debug().Err(err).Msg("description enrichment failed; keeping fallbacks")
		return
	}
	raw := parser.Parse(resp.Text)
	if len(raw) != len(articles) {
		log.Debug().Int("want", len(articles)).Int("got", len(raw)).Msg("description count mismatch; keeping fallbacks")
		return
	}
	for i, r := range raw {
		if desc := helpers.CleanText(parser.Normalize(r).Description, 400); desc != "" {
			articles[i].Description = desc
		}
	}
}

// citationRecords turns grounding citations into article records. They are
// corroborated by construction.
func citationRecords(ev *evidence.Evidence) []parser.Record {
	recs := make([]parser.Record, 0, ev.Len())
	for _, c := range ev.Citations {
		recs = append(recs, parser.Record{Title: c.Host, URL: c.URL, Source: c.Host})
	}
	return recs
}
