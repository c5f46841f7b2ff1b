package service

import (
	"context"
	"time"

	"secanalytics/core"
	"secanalytics/gateway"
	"secanalytics/metrics"
	"secanalytics/notify"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// RulesStoreConfig configures the fallback rule cache. A zero CacheSize
// disables the in-process cache.
type RulesStoreConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// DefaultRulesStoreConfig returns the default cache settings
func DefaultRulesStoreConfig() RulesStoreConfig {
	return RulesStoreConfig{CacheSize: 5000, CacheTTL: 10 * time.Minute}
}

// RulesStore resolves rule metadata by id. Every call queries the backend;
// the in-process LRU and the optional shared Redis cache only answer for
// ids whose batch could not be fetched.
type RulesStore struct {
	gateway  RulesGateway
	notifier Notifier
	logger   *zap.SugaredLogger
	local    *expirable.LRU[string, core.Rule]
	shared   RuleCache
	ttl      time.Duration
}

// NewRulesStore creates a rules store. shared may be nil.
func NewRulesStore(gw RulesGateway, shared RuleCache, cfg RulesStoreConfig, notifier Notifier, logger *zap.SugaredLogger) *RulesStore {
	s := &RulesStore{
		gateway:  gw,
		notifier: notifier,
		logger:   logger,
		shared:   shared,
		ttl:      cfg.CacheTTL,
	}
	if cfg.CacheSize > 0 {
		s.local = expirable.NewLRU[string, core.Rule](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return s
}

// GetRulesByIDs returns a lookup of every rule found among ids. Custom and
// pre-packaged rules are queried separately and merged.
func (s *RulesStore) GetRulesByIDs(ctx context.Context, ids []string) core.RuleLookup {
	ids = uniqueStrings(ids)
	lookup := make(core.RuleLookup, len(ids))
	if len(ids) == 0 {
		return lookup
	}

	unresolved := make(map[string]bool)
	lookup.Merge(s.fetch(ctx, ids, true, unresolved))
	lookup.Merge(s.fetch(ctx, ids, false, unresolved))

	cached := 0
	for _, id := range ids {
		if rule, ok := lookup[id]; ok {
			s.remember(ctx, rule)
			continue
		}
		if !unresolved[id] {
			// both queries answered without it, so the rule is gone
			s.Invalidate(ctx, id)
			continue
		}
		if rule, ok := s.fromCache(ctx, id); ok {
			lookup[id] = rule
			cached++
		}
	}
	s.logger.Debugw("Resolved rules",
		"requested", len(ids),
		"found", len(lookup),
		"from_cache", cached)
	return lookup
}

// Invalidate drops a rule from the caches
func (s *RulesStore) Invalidate(ctx context.Context, id string) {
	if s.local != nil {
		s.local.Remove(id)
	}
	if s.shared != nil {
		if err := s.shared.Delete(ctx, core.RuleCacheKey(id)); err != nil {
			s.logger.Warnf("Failed to evict rule %s from shared cache: %v", id, err)
		}
	}
}

// fromCache returns the last known version of a rule
func (s *RulesStore) fromCache(ctx context.Context, id string) (core.Rule, bool) {
	if s.local != nil {
		if rule, ok := s.local.Get(id); ok {
			metrics.CacheHits.WithLabelValues("rules").Inc()
			return rule, true
		}
		metrics.CacheMisses.WithLabelValues("rules").Inc()
	}
	if s.shared != nil {
		var rule core.Rule
		found, err := s.shared.Get(ctx, core.RuleCacheKey(id), &rule)
		if err != nil {
			s.logger.Warnf("Shared rule cache lookup failed for %s: %v", id, err)
		}
		if found {
			return rule, true
		}
	}
	return core.Rule{}, false
}

// fetch queries one rule kind in batches. Ids of failed batches are added
// to unresolved.
func (s *RulesStore) fetch(ctx context.Context, ids []string, prePackaged bool, unresolved map[string]bool) core.RuleLookup {
	out := make(core.RuleLookup)
	for _, batch := range chunkStrings(ids, core.MaxRulesPerQuery) {
		res := s.gateway.GetRules(ctx, gateway.RulesQuery{IDs: batch, PrePackaged: prePackaged})
		if !res.OK {
			s.notifier.Notify(notify.KindError, "retrieve", "rules", res.Error)
			for _, id := range batch {
				unresolved[id] = true
			}
			continue
		}
		for _, hit := range res.Response {
			rule := hit.Rule(prePackaged)
			out[rule.ID] = rule
		}
	}
	return out
}

func (s *RulesStore) remember(ctx context.Context, rule core.Rule) {
	if s.local != nil {
		s.local.Add(rule.ID, rule)
	}
	if s.shared != nil {
		if err := s.shared.Set(ctx, core.RuleCacheKey(rule.ID), rule, s.ttl); err != nil {
			s.logger.Warnf("Failed to cache rule %s: %v", rule.ID, err)
		}
	}
}
