/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

// Package gateway provides HTTP routes of the dashboard API. Every route serves a cached copy
// of the upstream response if there is one, otherwise it fetches the data from upstream
// through the request orchestrator and caches it with the TTL of the data class.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/vinyldash/vinylgw/cache"
	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/queue"
	"github.com/vinyldash/vinylgw/restapi"
	"github.com/vinyldash/vinylgw/upstream"
)

// ErrorDomain is used in error responses of the gateway.
const ErrorDomain = "VinylGW"

// Upstream resource names.
const (
	ResourceDiscogs = "discogs"
	ResourceSongBPM = "songbpm"
)

// HeaderCacheStatus reports whether the response was served from cache (HIT) or from upstream (MISS).
const HeaderCacheStatus = "X-Cache-Status"

const (
	cacheStatusHit  = "HIT"
	cacheStatusMiss = "MISS"
)

// MetricsLabelCacheStatus is the custom label of HTTP request metrics set by the cached routes.
const MetricsLabelCacheStatus = "cache_status"

var errInvalidUpstreamBody = errors.New("upstream response body is not valid JSON")

// Fetcher sends requests to upstream. *upstream.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Handler serves the gateway API.
type Handler struct {
	cfg          *Config
	store        *cache.Store
	orchestrator *queue.Orchestrator
	discogs      Fetcher
	songbpm      Fetcher
	fills        singleflight.Group
}

// NewHandler creates a new Handler.
func NewHandler(cfg *Config, store *cache.Store, orchestrator *queue.Orchestrator, discogs, songbpm Fetcher) *Handler {
	return &Handler{cfg: cfg, store: store, orchestrator: orchestrator, discogs: discogs, songbpm: songbpm}
}

// Routes registers the gateway routes in the router.
func (h *Handler) Routes(router chi.Router) {
	router.Get("/collection", h.getCollection)
	router.Get("/releases/{id}", h.getRelease)
	router.Get("/tempo/search", h.searchTempo)
	router.Get("/tempo/songs/{id}", h.getSong)
	router.Get("/diagnostics", h.getDiagnostics)
}

// cachedFetch describes how the data is looked up in cache and fetched from upstream on miss.
type cachedFetch struct {
	resource  string
	fetcher   Fetcher
	namespace string
	params    map[string]string
	ttl       time.Duration
	req       upstream.Request
}

func (h *Handler) serveCached(rw http.ResponseWriter, r *http.Request, cf cachedFetch) {
	ctx := r.Context()
	logger := middleware.GetLoggerFromContext(ctx)

	key := cache.GenerateKey(cf.namespace, cf.params)
	if body, ok := h.store.Get(ctx, key); ok {
		annotateCacheStatus(r, cacheStatusHit)
		rw.Header().Set(HeaderCacheStatus, cacheStatusHit)
		restapi.RespondCodeAndRawJSON(rw, http.StatusOK, []byte(body), logger)
		return
	}

	// The fill outlives the request that started it, other requests for the same key may wait for it.
	fillCtx := context.WithoutCancel(ctx)
	cf.req.DedupeKey = key
	fillResult := h.fills.DoChan(key, func() (interface{}, error) {
		resp, err := cf.fetcher.Fetch(fillCtx, cf.req)
		if err != nil {
			return nil, err
		}
		if !json.Valid(resp.Body) {
			return nil, errInvalidUpstreamBody
		}
		h.store.Set(fillCtx, key, resp.Text(), cf.ttl)
		return resp.Body, nil
	})

	annotateCacheStatus(r, cacheStatusMiss)
	waitStart := time.Now()
	defer func() {
		if lp := middleware.GetLoggingParamsFromContext(ctx); lp != nil {
			lp.AddTimeSlotDurationInMs("upstream_wait_ms", time.Since(waitStart))
		}
	}()

	select {
	case <-ctx.Done():
		h.respondError(rw, r, cf.resource, ctx.Err())
	case res := <-fillResult:
		if res.Err != nil {
			h.respondError(rw, r, cf.resource, res.Err)
			return
		}
		rw.Header().Set(HeaderCacheStatus, cacheStatusMiss)
		restapi.RespondCodeAndRawJSON(rw, http.StatusOK, res.Val.([]byte), logger)
	}
}

func annotateCacheStatus(r *http.Request, status string) {
	if mp := middleware.GetMetricsParamsFromContext(r.Context()); mp != nil {
		mp.SetValue(MetricsLabelCacheStatus, strings.ToLower(status))
	}
	if lp := middleware.GetLoggingParamsFromContext(r.Context()); lp != nil {
		lp.ExtendFields(log.String("cache_status", status))
	}
}

func (h *Handler) getCollection(rw http.ResponseWriter, r *http.Request) {
	page, ok := h.intQueryParam(rw, r, "page", 1, 1, 0)
	if !ok {
		return
	}
	perPage, ok := h.intQueryParam(rw, r, "perPage", defaultPerPage(h.cfg.MaxPerPage), 1, h.cfg.MaxPerPage)
	if !ok {
		return
	}
	pageStr, perPageStr := itoa(page), itoa(perPage)
	h.serveCached(rw, r, cachedFetch{
		resource:  ResourceDiscogs,
		fetcher:   h.discogs,
		namespace: "discogs:collection",
		params:    map[string]string{"user": h.cfg.DiscogsUsername, "page": pageStr, "perPage": perPageStr},
		ttl:       h.cfg.TTL.Collection,
		req: upstream.Request{
			Path:  "/users/" + url.PathEscape(h.cfg.DiscogsUsername) + "/collection/folders/0/releases",
			Query: url.Values{"page": {pageStr}, "per_page": {perPageStr}},
		},
	})
}

func (h *Handler) getRelease(rw http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !isPositiveInt(id) {
		h.respondInvalidParameter(rw, r, "id", "Release id must be a positive integer.")
		return
	}
	h.serveCached(rw, r, cachedFetch{
		resource:  ResourceDiscogs,
		fetcher:   h.discogs,
		namespace: "discogs:release",
		params:    map[string]string{"id": id},
		ttl:       h.cfg.TTL.Release,
		req:       upstream.Request{Path: "/releases/" + id},
	})
}

func (h *Handler) searchTempo(rw http.ResponseWriter, r *http.Request) {
	artist, ok := h.requiredQueryParam(rw, r, "artist")
	if !ok {
		return
	}
	title, ok := h.requiredQueryParam(rw, r, "title")
	if !ok {
		return
	}
	h.serveCached(rw, r, cachedFetch{
		resource:  ResourceSongBPM,
		fetcher:   h.songbpm,
		namespace: "songbpm:search",
		params:    map[string]string{"artist": normalizeSearchTerm(artist), "title": normalizeSearchTerm(title)},
		ttl:       h.cfg.TTL.TempoSearch,
		req: upstream.Request{
			Path:  "/search/",
			Query: url.Values{"type": {"both"}, "lookup": {"song:" + title + " artist:" + artist}},
		},
	})
}

func (h *Handler) getSong(rw http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !isSongID(id) {
		h.respondInvalidParameter(rw, r, "id", "Song id must be alphanumeric.")
		return
	}
	h.serveCached(rw, r, cachedFetch{
		resource:  ResourceSongBPM,
		fetcher:   h.songbpm,
		namespace: "songbpm:song",
		params:    map[string]string{"id": id},
		ttl:       h.cfg.TTL.Song,
		req:       upstream.Request{Path: "/song/", Query: url.Values{"id": {id}}},
	})
}

type limitUsage struct {
	Used   int    `json:"used"`
	Max    int    `json:"max"`
	Window string `json:"window"`
}

type cacheDiagnostics struct {
	Available bool `json:"available"`
}

type diagnosticsResponse struct {
	Cache  cacheDiagnostics      `json:"cache"`
	Queue  queue.Stats           `json:"queue"`
	Limits map[string]limitUsage `json:"limits"`
}

func (h *Handler) getDiagnostics(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())
	resp := diagnosticsResponse{
		Cache:  cacheDiagnostics{Available: h.store.Probe(r.Context())},
		Queue:  h.orchestrator.Stats(),
		Limits: make(map[string]limitUsage),
	}
	limiter := h.orchestrator.Limiter()
	for _, name := range limiter.Resources() {
		rate, err := limiter.Rate(name)
		if err != nil {
			continue
		}
		used, err := limiter.Usage(name)
		if err != nil {
			continue
		}
		resp.Limits[name] = limitUsage{Used: used, Max: rate.Count, Window: rate.Duration.String()}
	}
	if logger != nil {
		logger.Debug("diagnostics collected", log.Bool("cache_available", resp.Cache.Available))
	}
	restapi.RespondJSON(rw, resp, logger)
}
