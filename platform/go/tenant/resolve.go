package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	platformauth "github.com/optoplus-health/optoplus/platform/go/auth"
)

// OverrideHeader lets platform admins target any clinic explicitly.
const OverrideHeader = "X-Clinic-Key"

var (
	// ErrClinicRequired is returned when the session carries no clinic claim.
	ErrClinicRequired = errors.New("clinic claim required")
	// ErrOverrideDenied is returned when a non-admin supplies an override key.
	ErrOverrideDenied = errors.New("clinic override requires platform admin")
)

// SpaceLookup is the registry lookup the resolver variants depend on.
// Implemented by the clinics repository; returns a not-found error for
// unknown or deactivated clinics.
type SpaceLookup interface {
	SpaceByKey(ctx context.Context, databaseKey string) (Space, error)
}

// Resolver maps an authenticated request to the clinic Space its queries
// must be routed to. The historical controller variants (single-tenant,
// clinic-per-session, admin override) collapse into the implementations
// below instead of being duplicated per endpoint.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (Space, error)
}

// SingleTenant always resolves to one fixed clinic, for deployments that
// run the whole product against a single database.
type SingleTenant struct {
	Space Space
}

func (s SingleTenant) Resolve(ctx context.Context, _ *http.Request) (Space, error) {
	return s.Space, nil
}

// ClinicBound resolves the clinic from the session claims of the
// authenticated principal.
type ClinicBound struct {
	Lookup SpaceLookup
}

func (c ClinicBound) Resolve(ctx context.Context, _ *http.Request) (Space, error) {
	creds, ok := platformauth.UserFromContext(ctx)
	if !ok || creds == nil || creds.ClinicKey == "" {
		return Space{}, ErrClinicRequired
	}

	space, err := c.Lookup.SpaceByKey(ctx, creds.ClinicKey)
	if err != nil {
		return Space{}, fmt.Errorf("resolve clinic %q: %w", creds.ClinicKey, err)
	}
	return space, nil
}

// SuperAdminOverride honours an explicit clinic key supplied by a platform
// admin and falls back to session-bound resolution for everyone else.
type SuperAdminOverride struct {
	Lookup   SpaceLookup
	Fallback Resolver
}

func (s SuperAdminOverride) Resolve(ctx context.Context, r *http.Request) (Space, error) {
	override := r.Header.Get(OverrideHeader)
	if override == "" {
		return s.Fallback.Resolve(ctx, r)
	}

	creds, ok := platformauth.UserFromContext(ctx)
	if !ok || creds == nil || !creds.IsPlatformAdmin() {
		return Space{}, ErrOverrideDenied
	}

	key, err := NormalizeDatabaseKey(override)
	if err != nil {
		return Space{}, fmt.Errorf("override clinic key: %w", err)
	}

	space, err := s.Lookup.SpaceByKey(ctx, key)
	if err != nil {
		return Space{}, fmt.Errorf("resolve override clinic %q: %w", key, err)
	}
	return space, nil
}
