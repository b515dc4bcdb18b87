// Package identity resolves the authenticated user context through an
// ordered chain of providers with graceful degradation.
package identity

import (
	"context"
	"log"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// Provider is one tier of identity resolution. A provider may return a
// partial identity; the resolver merges tiers front to back.
type Provider interface {
	// Name identifies the tier in logs.
	Name() string
	// Resolve returns the identity for the given auth claims.
	Resolve(ctx context.Context, claims models.Identity) (models.Identity, error)
}

// Resolver tries providers in order and falls back to the raw auth claims
// when every tier fails. Resolve never returns an error; a conversation with
// a degraded identity is still serviceable.
type Resolver struct {
	tiers []Provider
}

// NewResolver creates a resolver over the given tiers, tried in order.
func NewResolver(tiers ...Provider) *Resolver {
	return &Resolver{tiers: tiers}
}

// Resolve returns the best identity available. Each tier is attempted in
// order; the first success wins. All failures degrade to the raw claims.
func (r *Resolver) Resolve(ctx context.Context, claims models.Identity) models.Identity {
	for _, tier := range r.tiers {
		id, err := tier.Resolve(ctx, claims)
		if err != nil {
			log.Printf("[identity] tier %s failed: %v", tier.Name(), err)
			continue
		}
		if id.Empty() {
			log.Printf("[identity] tier %s returned empty identity, trying next", tier.Name())
			continue
		}
		log.Printf("[identity] resolved via tier %s (user=%s company=%s)", tier.Name(), id.ID, id.CompanyID)
		return merge(id, claims)
	}
	log.Printf("[identity] all tiers failed, using raw auth claims")
	return claims
}

// merge fills gaps in the resolved identity from the raw claims.
func merge(resolved, claims models.Identity) models.Identity {
	if resolved.ID == "" {
		resolved.ID = claims.ID
	}
	if resolved.Email == "" {
		resolved.Email = claims.Email
	}
	if resolved.Name == "" {
		resolved.Name = claims.Name
	}
	if resolved.Role == "" {
		resolved.Role = claims.Role
	}
	if resolved.CompanyID == "" {
		resolved.CompanyID = claims.CompanyID
	}
	if resolved.CompanyName == "" {
		resolved.CompanyName = claims.CompanyName
	}
	if resolved.Locale == "" {
		resolved.Locale = claims.Locale
	}
	return resolved
}

// StaticProvider resolves to a fixed identity. Used for configuration-backed
// deployments and tests.
type StaticProvider struct {
	// TierName is reported in logs.
	TierName string
	// Identity is the fixed identity to return.
	Identity models.Identity
	// Err, if set, makes the provider fail.
	Err error
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return p.TierName }

// Resolve implements Provider.
func (p *StaticProvider) Resolve(_ context.Context, _ models.Identity) (models.Identity, error) {
	if p.Err != nil {
		return models.Identity{}, p.Err
	}
	return p.Identity, nil
}

// FuncProvider adapts a function into a Provider.
type FuncProvider struct {
	TierName string
	Fn       func(ctx context.Context, claims models.Identity) (models.Identity, error)
}

// Name implements Provider.
func (p *FuncProvider) Name() string { return p.TierName }

// Resolve implements Provider.
func (p *FuncProvider) Resolve(ctx context.Context, claims models.Identity) (models.Identity, error) {
	return p.Fn(ctx, claims)
}
