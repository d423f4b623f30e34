// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package waymirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// FrontierEntry is one pending resource: the canonical identity used for
// deduplication and the fetch URL used to retrieve it.
type FrontierEntry struct {
	Canonical string
	Fetch     string
}

// ResourceState tracks a resource through its lifecycle.
type ResourceState string

const (
	StateQueued       ResourceState = "queued"
	StateFetching     ResourceState = "fetching"
	StateMaterialized ResourceState = "materialized"
	StateFailed       ResourceState = "failed"
	// StateSkipped marks entries still queued when the document budget ran out.
	StateSkipped ResourceState = "skipped"
)

// ArchivedResource records the outcome of one frontier entry.
type ArchivedResource struct {
	// Canonical is the deduplication identity
	Canonical string
	// Fetch is the URL the snapshot was requested for (query preserved)
	Fetch string
	// State is the resource's final lifecycle state
	State ResourceState
	// Kind is the classified media kind (set once fetched)
	Kind MediaKind
	// LocalPath is the mirror-relative output path (set once materialized)
	LocalPath string
	// Snapshot is the capture timestamp the payload came from
	Snapshot time.Time
	// Size is the materialized payload size in bytes
	Size int
	// Error describes the failure for StateFailed resources
	Error string
	// Corrupted marks a payload that did not match its expected kind
	Corrupted bool
}

// CorruptedAssetRegistry records canonical URLs whose archived payload turned
// out not to be the asset it claims to be. It satisfies CorruptedSet.
type CorruptedAssetRegistry struct {
	set map[string]struct{}
}

func NewCorruptedAssetRegistry() *CorruptedAssetRegistry {
	return &CorruptedAssetRegistry{set: make(map[string]struct{})}
}

func (r *CorruptedAssetRegistry) Mark(canonical string) {
	r.set[canonical] = struct{}{}
}

func (r *CorruptedAssetRegistry) IsCorrupted(canonical string) bool {
	_, ok := r.set[canonical]
	return ok
}

func (r *CorruptedAssetRegistry) Len() int { return len(r.set) }

// Session holds the mutable state of one crawl: the FIFO frontier, the set
// of canonical URLs ever enqueued, the per-resource records in first-visit
// order, and the corrupted-asset registry. A session belongs to exactly one
// Run and is only ever touched by the crawl loop, so it needs no locking.
type Session struct {
	frontier  []FrontierEntry
	visited   map[string]struct{}
	resources map[string]*ArchivedResource
	order     []string
	corrupted *CorruptedAssetRegistry
}

func NewSession() *Session {
	return &Session{
		visited:   make(map[string]struct{}),
		resources: make(map[string]*ArchivedResource),
		corrupted: NewCorruptedAssetRegistry(),
	}
}

// Enqueue adds an entry to the frontier unless its canonical identity has
// been enqueued before. It reports whether the entry was accepted.
func (s *Session) Enqueue(e FrontierEntry) bool {
	if _, seen := s.visited[e.Canonical]; seen {
		return false
	}
	s.visited[e.Canonical] = struct{}{}
	s.frontier = append(s.frontier, e)
	s.resources[e.Canonical] = &ArchivedResource{
		Canonical: e.Canonical,
		Fetch:     e.Fetch,
		State:     StateQueued,
	}
	s.order = append(s.order, e.Canonical)
	return true
}

// Dequeue pops the oldest frontier entry.
func (s *Session) Dequeue() (FrontierEntry, bool) {
	if len(s.frontier) == 0 {
		return FrontierEntry{}, false
	}
	e := s.frontier[0]
	s.frontier = s.frontier[1:]
	return e, true
}

// Resource returns the record for a canonical URL, or nil if never enqueued.
func (s *Session) Resource(canonical string) *ArchivedResource {
	return s.resources[canonical]
}

// Resources returns every record in first-enqueue order.
func (s *Session) Resources() []*ArchivedResource {
	out := make([]*ArchivedResource, 0, len(s.order))
	for _, c := range s.order {
		out = append(out, s.resources[c])
	}
	return out
}

// FetchResult is a decoded snapshot response.
type FetchResult struct {
	Body       []byte
	Header     http.Header
	StatusCode int
}

// FetchBackend retrieves one wrapper URL from the archive. Implementations
// return ErrSnapshotNotFound when no capture exists at that timestamp and
// ErrFetchTransient for retryable failures.
type FetchBackend interface {
	Fetch(ctx context.Context, wrapperURL string) (*FetchResult, error)
}

// OnResourceMirroredFunc is called after each resource reaches a terminal
// state, materialized or failed.
type OnResourceMirroredFunc func(*ArchivedResource)

// OnCompleteFunc is called once when the run ends, naturally or cancelled.
type OnCompleteFunc func(*RunSummary)

// RunSummary aggregates the outcome of one run.
type RunSummary struct {
	// Seed is the wrapper URL the run started from
	Seed string
	// OutputDir is the mirror root
	OutputDir string
	// Pages and Assets count materialized resources by kind
	Pages  int
	Assets int
	// Fetched counts successful snapshot retrievals
	Fetched int
	// Failed counts resources with no usable capture
	Failed int
	// SkippedDuplicates counts references dropped by canonical dedup
	SkippedDuplicates int
	// SkippedBudget counts documents not fetched due to MaxDocuments
	SkippedBudget int
	// SuppressedCorrupted counts stylesheet references removed because the
	// target payload was corrupted in the archive
	SuppressedCorrupted int
	// Cancelled reports whether the run stopped on context cancellation
	Cancelled bool
	// Duration is wall-clock run time
	Duration time.Duration
}

const transientAttempts = 3

// Crawler reconstructs a browsable local mirror from one archive wrapper
// URL. The crawl is strictly sequential: one frontier entry is fetched,
// transformed and materialized at a time, so every collaborator can stay
// lock-free.
type Crawler struct {
	policy   *Policy
	codec    *SnapshotCodec
	norm     *URLNormalizer
	paths    *PathMapper
	rewrite  *RewriteEngine
	resolver *TimeframeResolver
	backend  FetchBackend
	writer   *MirrorWriter
	robots   *RobotsGate
	log      *zap.Logger

	seed    Snapshot
	session *Session

	onResource OnResourceMirroredFunc
	onComplete OnCompleteFunc
}

// Option configures a Crawler at construction time.
type Option func(*Crawler)

// WithBackend replaces the HTTP fetch backend, primarily for tests.
func WithBackend(b FetchBackend) Option {
	return func(c *Crawler) { c.backend = b }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Crawler) { c.log = l }
}

// WithWriter replaces the mirror writer.
func WithWriter(w *MirrorWriter) Option {
	return func(c *Crawler) { c.writer = w }
}

// NewCrawler validates the policy, decodes the seed wrapper URL and wires
// the collaborators for a single run. A URL that is not a wrapper URL is a
// fatal construction error.
func NewCrawler(wrapperURL string, policy *Policy, opts ...Option) (*Crawler, error) {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	seed, err := DecodeWrapper(wrapperURL)
	if err != nil {
		return nil, err
	}

	codec := NewSnapshotCodec(seed.Timestamp)
	norm, err := NewURLNormalizer(codec, seed.OriginalURL, policy.WWW)
	if err != nil {
		return nil, err
	}

	session := NewSession()
	paths := NewPathMapper()

	c := &Crawler{
		policy:   policy,
		codec:    codec,
		norm:     norm,
		paths:    paths,
		resolver: NewTimeframeResolver(),
		seed:     seed,
		session:  session,
		log:      zap.NewNop(),
	}
	c.rewrite = NewRewriteEngine(policy, codec, norm, paths, session.corrupted)

	for _, opt := range opts {
		opt(c)
	}
	if c.backend == nil {
		c.backend = NewHTTPBackend(policy)
	}
	if c.writer == nil {
		c.writer = NewMirrorWriter(policy.OutputDir)
	}
	return c, nil
}

// SetOnResourceMirrored registers a callback invoked after each resource
// reaches a terminal state.
func (c *Crawler) SetOnResourceMirrored(f OnResourceMirroredFunc) {
	c.onResource = f
}

// SetOnComplete registers a callback invoked once when the run ends.
func (c *Crawler) SetOnComplete(f OnCompleteFunc) {
	c.onComplete = f
}

// Session exposes the run's state for inspection after Run returns.
func (c *Crawler) Session() *Session { return c.session }

// Run executes the crawl until the frontier drains, the document budget is
// exhausted, or ctx is cancelled. Cancellation is observed at dequeue time:
// the in-flight resource always completes, so the mirror on disk is never
// half-written.
func (c *Crawler) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{
		Seed:      c.codec.Encode(c.seed.OriginalURL, c.seed.Timestamp),
		OutputDir: c.policy.OutputDir,
	}
	defer func() {
		summary.Duration = time.Since(start)
		if c.onComplete != nil {
			c.onComplete(summary)
		}
	}()

	if c.policy.RespectRobots {
		c.loadRobots(ctx)
	}

	canonical, fetch, err := c.norm.Normalize(c.seed.OriginalURL, "")
	if err != nil {
		return summary, fmt.Errorf("seed %q: %w", c.seed.OriginalURL, err)
	}
	c.session.Enqueue(FrontierEntry{Canonical: canonical, Fetch: fetch})

	if c.policy.DiscoverSitemap {
		for _, e := range c.discoverSitemap(ctx) {
			if !c.session.Enqueue(e) {
				summary.SkippedDuplicates++
			}
		}
	}

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			runErr = err
			break
		}
		entry, ok := c.session.Dequeue()
		if !ok {
			break
		}
		if c.overDocumentBudget(summary, entry) {
			summary.SkippedBudget++
			c.session.Resource(entry.Canonical).State = StateSkipped
			continue
		}
		c.processEntry(ctx, entry, summary)
		if c.policy.FetchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.policy.FetchDelay):
			}
		}
	}

	c.repairCorrupted(summary)

	c.log.Info("run complete",
		zap.Int("pages", summary.Pages),
		zap.Int("assets", summary.Assets),
		zap.Int("failed", summary.Failed),
		zap.Int("skippedDuplicates", summary.SkippedDuplicates),
		zap.Int("suppressedCorrupted", summary.SuppressedCorrupted),
		zap.Bool("cancelled", summary.Cancelled),
	)
	return summary, runErr
}

// overDocumentBudget applies MaxDocuments to entries that look like pages.
// Asset kinds are not budgeted; the extension heuristic errs on the side of
// treating extensionless URLs as documents, matching the classifier's
// fallback.
func (c *Crawler) overDocumentBudget(summary *RunSummary, entry FrontierEntry) bool {
	if c.policy.MaxDocuments <= 0 {
		return false
	}
	if hasKnownAssetExtension(entry.Fetch) || c.paths.IsMirroredFontHost(entry.Fetch) {
		return false
	}
	return summary.Pages >= c.policy.MaxDocuments
}

// processEntry drives one resource to a terminal state.
func (c *Crawler) processEntry(ctx context.Context, entry FrontierEntry, summary *RunSummary) {
	res := c.session.Resource(entry.Canonical)
	res.State = StateFetching

	if c.robots != nil && !c.robots.Allowed(entry.Fetch) {
		res.State = StateFailed
		res.Error = "disallowed by archived robots.txt"
		summary.Failed++
		c.notify(res)
		return
	}

	result, when, err := c.fetchWithFallback(ctx, entry.Fetch)
	if err != nil {
		res.State = StateFailed
		res.Error = err.Error()
		summary.Failed++
		if c.expectsAsset(entry.Fetch) && errors.Is(err, ErrSnapshotNotFound) {
			// A referenced asset with no capture anywhere in the fallback
			// windows; rewriters suppress the dangling references.
			res.Corrupted = true
			c.session.corrupted.Mark(entry.Canonical)
		}
		c.log.Warn("fetch failed", zap.String("url", entry.Fetch), zap.Error(err))
		c.notify(res)
		return
	}
	summary.Fetched++
	res.Snapshot = when

	info := ClassifyContent(entry.Fetch, result.Header, result.Body)
	res.Kind = info.Kind

	if c.payloadMismatch(entry.Fetch, info) {
		res.State = StateFailed
		res.Corrupted = true
		res.Error = fmt.Errorf("%w: expected %s payload, archive served %s",
			ErrCorruptedAsset, expectedKind(entry.Fetch), info.Kind).Error()
		c.session.corrupted.Mark(entry.Canonical)
		summary.Failed++
		c.log.Warn("corrupted capture", zap.String("url", entry.Fetch), zap.String("kind", string(info.Kind)))
		c.notify(res)
		return
	}

	payload, discovered, suppressed := c.transform(result, info, entry)
	summary.SuppressedCorrupted += suppressed

	localPath := c.paths.Map(entry.Fetch)
	if err := c.writer.Write(localPath, payload, info.Kind.IsText()); err != nil {
		res.State = StateFailed
		res.Error = err.Error()
		summary.Failed++
		c.log.Error("write failed", zap.String("path", localPath), zap.Error(err))
		c.notify(res)
		return
	}

	res.State = StateMaterialized
	res.LocalPath = localPath
	res.Size = len(payload)
	if info.Kind == KindDocument {
		summary.Pages++
	} else {
		summary.Assets++
	}
	c.log.Info("mirrored",
		zap.String("url", entry.Fetch),
		zap.String("path", localPath),
		zap.String("kind", string(info.Kind)),
		zap.Time("snapshot", when),
	)
	c.notify(res)

	for _, d := range discovered {
		if !c.session.Enqueue(d) {
			summary.SkippedDuplicates++
		}
	}
}

// repairCorrupted re-renders materialized text resources once the full set of
// corrupted assets is known. A stylesheet is materialized before the assets
// it references are fetched, so an asset that later turns out corrupted
// leaves dangling references behind; this pass removes them. Localized
// references re-normalize to the same canonical identity, so re-rewriting a
// mirrored payload is stable.
func (c *Crawler) repairCorrupted(summary *RunSummary) {
	if c.session.corrupted.Len() == 0 {
		return
	}
	for _, res := range c.session.Resources() {
		if res.State != StateMaterialized {
			continue
		}
		switch res.Kind {
		case KindStylesheet:
			raw, err := c.writer.Read(res.LocalPath)
			if err != nil {
				continue
			}
			out, _, suppressed := c.rewrite.RewriteStylesheet(string(raw), res.Fetch)
			if suppressed == 0 {
				continue
			}
			if c.policy.MinifyCSS {
				out = MinifyCSS(out)
			}
			if err := c.writer.Write(res.LocalPath, []byte(out), true); err != nil {
				c.log.Error("repair write failed", zap.String("path", res.LocalPath), zap.Error(err))
				continue
			}
			summary.SuppressedCorrupted += suppressed
			res.Size = len(out)

		case KindDocument:
			raw, err := c.writer.Read(res.LocalPath)
			if err != nil {
				continue
			}
			payload, _, suppressed, err := c.rewrite.RewriteDocument(raw, res.Fetch)
			if err != nil || suppressed == 0 {
				continue
			}
			if c.policy.OptimizeHTML {
				payload = OptimizeHTML(payload)
			}
			if err := c.writer.Write(res.LocalPath, payload, true); err != nil {
				c.log.Error("repair write failed", zap.String("path", res.LocalPath), zap.Error(err))
				continue
			}
			summary.SuppressedCorrupted += suppressed
			res.Size = len(payload)
		}
	}
}

// transform dispatches the payload to the rewriter matching its media kind
// and returns the bytes to materialize, the discovered references, and the
// number of corrupted references suppressed.
func (c *Crawler) transform(result *FetchResult, info ContentInfo, entry FrontierEntry) ([]byte, []FrontierEntry, int) {
	switch info.Kind {
	case KindDocument:
		text := c.writer.DecodeText(result.Body, contentTypeOf(result.Header))
		payload, discovered, suppressed, err := c.rewrite.RewriteDocument([]byte(text), entry.Fetch)
		if err != nil {
			c.log.Warn("document parse failed, stored verbatim", zap.String("url", entry.Fetch), zap.Error(err))
			return []byte(text), nil, 0
		}
		if c.policy.OptimizeHTML {
			payload = OptimizeHTML(payload)
		}
		return payload, discovered, suppressed

	case KindStylesheet:
		text := c.writer.DecodeText(result.Body, contentTypeOf(result.Header))
		out, discovered, suppressed := c.rewrite.RewriteStylesheet(text, entry.Fetch)
		if c.policy.MinifyCSS {
			out = MinifyCSS(out)
		}
		return []byte(out), discovered, suppressed

	case KindScript:
		text := c.writer.DecodeText(result.Body, contentTypeOf(result.Header))
		out, discovered := c.rewrite.RewriteScript(text, entry.Fetch)
		if c.policy.MinifyJS {
			out = MinifyJS(out)
		}
		return []byte(out), discovered, 0

	case KindImage:
		body := result.Body
		if c.policy.OptimizeImages {
			body = OptimizeImage(body, info.ImageFormat)
		}
		return body, nil, 0

	default:
		return result.Body, nil, 0
	}
}

// fetchWithFallback tries the primary timestamp, retrying transient errors,
// then sweeps the fallback windows for the nearest available capture.
func (c *Crawler) fetchWithFallback(ctx context.Context, fetchURL string) (*FetchResult, time.Time, error) {
	var result *FetchResult

	try := func(ts time.Time) (bool, error) {
		wrapper := c.codec.Encode(fetchURL, ts)
		var lastErr error
		for attempt := 0; attempt < transientAttempts; attempt++ {
			r, err := c.backend.Fetch(ctx, wrapper)
			if err == nil {
				result = r
				return true, nil
			}
			lastErr = err
			if errors.Is(err, ErrSnapshotNotFound) {
				return false, nil
			}
			if !errors.Is(err, ErrFetchTransient) {
				return false, err
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
		}
		// Persistent transient failure at this timestamp; let the sweep try
		// a neighboring capture.
		c.log.Debug("capture unreachable", zap.String("wrapper", wrapper), zap.Error(lastErr))
		return false, nil
	}

	primary := c.codec.Primary()
	found, err := try(primary)
	if err != nil {
		return nil, time.Time{}, err
	}
	if found {
		return result, primary, nil
	}

	ts, err := c.resolver.Resolve(ctx, primary, try)
	if err != nil {
		return nil, time.Time{}, err
	}
	c.log.Debug("fallback capture used",
		zap.String("url", fetchURL),
		zap.Duration("offset", ts.Sub(primary)),
	)
	return result, ts, nil
}

// payloadMismatch reports whether a URL that promises a binary asset kind
// came back as an HTML document, which is how the archive serves error pages
// for lost captures.
func (c *Crawler) payloadMismatch(fetchURL string, info ContentInfo) bool {
	switch expectedKind(fetchURL) {
	case KindImage, KindFont, KindStylesheet, KindScript:
		return info.Kind == KindDocument
	}
	return false
}

// expectsAsset reports whether the URL's extension promises a non-document.
func (c *Crawler) expectsAsset(fetchURL string) bool {
	k := expectedKind(fetchURL)
	return k != "" && k != KindDocument
}

func (c *Crawler) notify(res *ArchivedResource) {
	if c.onResource != nil {
		c.onResource(res)
	}
}

func contentTypeOf(header http.Header) string {
	return header.Get("Content-Type")
}
