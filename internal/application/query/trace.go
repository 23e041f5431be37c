package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

// TraceResult is one trace entry with its key.
type TraceResult struct {
	Key   string            `json:"key"`
	Trace entity.TraceEntry `json:"trace"`
}

// TracePage holds the entries whose keys start with Prefix, in key order.
type TracePage struct {
	Prefix string                       `json:"prefix"`
	Traces map[string]entity.TraceEntry `json:"traces"`
	Count  int                          `json:"count"`
	Total  int                          `json:"total"`
}

// Trace returns the derivation of one trace key. Unknown keys fail with
// domain.ErrTraceNotFound.
func (h *Handle) Trace(ctx context.Context, key string) (*TraceResult, error) {
	key = strings.TrimSpace(key)
	var out *TraceResult
	err := h.observe(ctx, OpTrace, func(ctx context.Context, s *Snapshot) error {
		if key == "" {
			return fmt.Errorf("%w: trace key is required", domain.ErrInvalidInput)
		}
		cacheKey := "k\x00" + key
		if hit, ok := h.traces.Get(cacheKey); ok && hit.entry != nil && hit.generation == s.generation {
			h.metrics.recordCacheHit(ctx, OpTrace)
			out = hit.entry
			return nil
		}
		entry, ok := s.Traces[key]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrTraceNotFound, key)
		}
		out = &TraceResult{Key: key, Trace: entry}
		h.traces.Add(cacheKey, cachedTrace{entry: out, generation: s.generation})
		return nil
	})
	return out, err
}

// TracePrefix returns up to limit entries whose key starts with prefix. An empty prefix
// pages from the first key.
func (h *Handle) TracePrefix(ctx context.Context, prefix string, limit int) (*TracePage, error) {
	q := TraceQuery{Prefix: prefix, Limit: limit}
	var out *TracePage
	err := h.observe(ctx, OpTracePrefix, func(ctx context.Context, s *Snapshot) error {
		if err := q.Validate(); err != nil {
			return err
		}
		cacheKey := "p\x00" + strconv.Itoa(q.Limit) + "\x00" + q.Prefix
		if hit, ok := h.traces.Get(cacheKey); ok && hit.page != nil && hit.generation == s.generation {
			h.metrics.recordCacheHit(ctx, OpTracePrefix)
			out = hit.page
			return nil
		}
		out = s.tracePrefix(q.Prefix, q.Limit)
		h.traces.Add(cacheKey, cachedTrace{page: out, generation: s.generation})
		return nil
	})
	return out, err
}

// tracePrefix binary-searches the sorted keys for the first key >= prefix and walks
// forward while keys share the prefix.
func (s *Snapshot) tracePrefix(prefix string, limit int) *TracePage {
	keys := s.traceKeys
	start := sort.SearchStrings(keys, prefix)
	page := &TracePage{Prefix: prefix, Traces: map[string]entity.TraceEntry{}}
	for i := start; i < len(keys) && strings.HasPrefix(keys[i], prefix); i++ {
		if page.Count < limit {
			page.Traces[keys[i]] = s.Traces[keys[i]]
			page.Count++
		}
		page.Total++
	}
	return page
}
