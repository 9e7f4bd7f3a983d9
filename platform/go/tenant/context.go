package tenant

import (
	"context"
)

// Space captures the resolved clinic routing metadata for a request.
// It is intended to be attached to the context by middleware once the clinic
// has been resolved from session claims; query routing reads DatabaseKey only.
type Space struct {
	ClinicID    int64
	DatabaseKey string
	DisplayName string
}

type ctxKey string

const spaceKey ctxKey = "OPTOPLUS_CLINIC_SPACE"

// WithSpace returns a derived context carrying the clinic Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, spaceKey, space)
}

// FromContext extracts the clinic Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	v := ctx.Value(spaceKey)
	if v == nil {
		return Space{}, false
	}

	space, ok := v.(Space)
	return space, ok
}
