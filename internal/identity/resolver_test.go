package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

func TestResolveFirstTierWins(t *testing.T) {
	r := NewResolver(
		&StaticProvider{TierName: "profile", Identity: models.Identity{ID: "u1", Email: "a@example.com"}},
		&StaticProvider{TierName: "directory", Identity: models.Identity{ID: "u2"}},
	)

	got := r.Resolve(context.Background(), models.Identity{})
	if got.ID != "u1" {
		t.Errorf("resolved ID = %q, want u1 (first tier)", got.ID)
	}
}

func TestResolveFallsThroughFailedTier(t *testing.T) {
	r := NewResolver(
		&StaticProvider{TierName: "profile", Err: errors.New("service down")},
		&StaticProvider{TierName: "directory", Identity: models.Identity{ID: "u2"}},
	)

	got := r.Resolve(context.Background(), models.Identity{})
	if got.ID != "u2" {
		t.Errorf("resolved ID = %q, want u2 (second tier)", got.ID)
	}
}

func TestResolveSkipsEmptyIdentity(t *testing.T) {
	r := NewResolver(
		&StaticProvider{TierName: "profile", Identity: models.Identity{}},
		&StaticProvider{TierName: "directory", Identity: models.Identity{ID: "u3"}},
	)

	got := r.Resolve(context.Background(), models.Identity{})
	if got.ID != "u3" {
		t.Errorf("resolved ID = %q, want u3", got.ID)
	}
}

func TestResolveDegradesToClaims(t *testing.T) {
	r := NewResolver(
		&StaticProvider{TierName: "profile", Err: errors.New("down")},
	)

	claims := models.Identity{ID: "claim-user", CompanyID: "comp_1"}
	got := r.Resolve(context.Background(), claims)
	if got.ID != "claim-user" || got.CompanyID != "comp_1" {
		t.Errorf("expected raw claims back, got %+v", got)
	}
}

func TestResolveMergesClaimGaps(t *testing.T) {
	r := NewResolver(
		&StaticProvider{TierName: "profile", Identity: models.Identity{ID: "u1", Name: "Ada"}},
	)

	claims := models.Identity{ID: "ignored", Email: "ada@example.com", CompanyID: "comp_9", CompanyName: "Nine Corp"}
	got := r.Resolve(context.Background(), claims)
	if got.ID != "u1" {
		t.Errorf("resolved fields must win, got ID %q", got.ID)
	}
	if got.Email != "ada@example.com" || got.CompanyID != "comp_9" {
		t.Errorf("claim fields must fill gaps, got %+v", got)
	}
	if got.CompanyName != "Nine Corp" {
		t.Errorf("company name must fill from claims, got %q", got.CompanyName)
	}
}

func TestFuncProvider(t *testing.T) {
	called := false
	p := &FuncProvider{TierName: "fn", Fn: func(_ context.Context, claims models.Identity) (models.Identity, error) {
		called = true
		return models.Identity{ID: "via-fn-" + claims.ID}, nil
	}}

	r := NewResolver(p)
	got := r.Resolve(context.Background(), models.Identity{ID: "x"})
	if !called {
		t.Fatal("provider function not invoked")
	}
	if got.ID != "via-fn-x" {
		t.Errorf("resolved ID = %q", got.ID)
	}
}
