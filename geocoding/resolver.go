// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"log"
	"strings"
	"time"

	"github.com/collegelinks/collegelinks/address"
)

// DefaultRetryBudget bounds how many levels of address variations a
// resolution may descend through before giving up.
const DefaultRetryBudget = 3

// Per-provider minimum local confidence. The fallback provider needs a
// stricter floor because its average reliability is lower. Hand-tuned.
var confidenceFloors = map[Source]float64{
	SourceGoogle:    0.6,
	SourceNominatim: 0.7,
}

func confidenceFloor(s Source) float64 {
	if floor, ok := confidenceFloors[s]; ok {
		return floor
	}

	return 0.7
}

// Resolver coordinates cache, address processing, providers, validation
// and acceptance into a single deterministic resolution.
//
// For each address it checks the cache, then tries providers in priority
// order; a candidate must pass the bounds gate, the acceptance validator
// and its provider's confidence floor. The first survivor is scored,
// cached and returned. When every provider fails, the resolver walks
// address variations with a decremented budget. Only exhaustion of both
// providers and variations yields a terminal failure, which is never
// cached so a later run can try again.
type Resolver struct {
	processor AddressProcessor
	cache     *Cache              // nil disables caching
	acceptor  AcceptanceValidator // nil accepts everything
	providers []Geocoder          // fixed priority order
}

// NewResolver creates a resolver. Providers are tried in the order given;
// cache and acceptor may be nil.
func NewResolver(processor AddressProcessor, cache *Cache, acceptor AcceptanceValidator, providers ...Geocoder) *Resolver {
	return &Resolver{
		processor: processor,
		cache:     cache,
		acceptor:  acceptor,
		providers: providers,
	}
}

type attempt struct {
	address string
	budget  int
}

// Geocode resolves an address, spending at most retryBudget levels of
// variations. It never returns nil: failures come back as a terminal
// result with Error set, not as an error value.
func (r *Resolver) Geocode(addr string, retryBudget int) *Result {
	// Depth-first over variations, with a visited set instead of
	// self-recursion so the retry budget stays trivially bounded.
	stack := []attempt{{address: addr, budget: retryBudget}}
	visited := make(map[string]bool)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := strings.ToLower(strings.TrimSpace(cur.address))
		if visited[key] {
			continue
		}

		visited[key] = true

		if r.cache != nil {
			if cached, ok := r.cache.Get(cur.address); ok {
				return cached
			}
		}

		normalized, md := r.processor.Process(cur.address)

		if cand := r.tryProviders(normalized, md); cand != nil {
			result := &Result{
				Point:            cand.Point(),
				Confidence:       cand.Confidence,
				Source:           cand.Source,
				FormattedAddress: cand.FormattedAddress,
				Components:       cand.Components,
				ValidationScore:  ValidationScore(cand, md),
				CreatedAt:        time.Now(),
			}

			if r.cache != nil {
				if err := r.cache.Put(cur.address, result); err != nil {
					log.Printf("Caching result for %q failed: %v", cur.address, err)
				}
			}

			return result
		}

		if cur.budget > 0 {
			variations := r.processor.Variations(normalized, md)
			// Push in reverse so variations are attempted in order.
			for i := len(variations) - 1; i >= 0; i-- {
				stack = append(stack, attempt{address: variations[i], budget: cur.budget - 1})
			}
		}
	}

	return &Result{
		Source:    SourceNone,
		CreatedAt: time.Now(),
		Error:     "geocoding failed for all attempts",
	}
}

// tryProviders returns the first candidate surviving the bounds gate, the
// acceptance validator and the provider confidence floor. Provider errors
// and rejections both fall through to the next provider.
func (r *Resolver) tryProviders(addr string, md *address.Metadata) *Candidate {
	for _, provider := range r.providers {
		cand, err := provider.Geocode(addr)
		if err != nil {
			if IsRateLimitError(err) || IsQuotaExceededError(err) {
				log.Printf("Provider throttled while geocoding %q: %v", addr, err)
			} else {
				log.Printf("Geocoding %q failed: %v", addr, err)
			}

			continue
		}

		if cand == nil {
			continue
		}

		if !WithinIndiaBounds(cand.Latitude, cand.Longitude) {
			continue
		}

		if r.acceptor != nil {
			if ok, _ := r.acceptor.Accept(cand, md); !ok {
				continue
			}
		}

		if cand.Confidence < confidenceFloor(cand.Source) {
			continue
		}

		return cand
	}

	return nil
}
