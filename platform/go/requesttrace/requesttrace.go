package requesttrace

import (
	"context"
	"errors"
	"strconv"

	platformauth "github.com/optoplus-health/optoplus/platform/go/auth"
)

type contextKey string

const ctxAuditInfo contextKey = "OPTOPLUS_REQUEST_TRACE"

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAdmin     ActorKind = "admin"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability.
// UserID is set only for authenticated actors; ClinicKey may be empty for
// platform admins and anonymous requests.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *string
	ClinicKey string
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an
// anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromCredentials builds an AuditInfo from authenticated credentials and a
// request ID.
func FromCredentials(creds *platformauth.UserCredentials, requestID string) (AuditInfo, error) {
	if creds == nil {
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	}
	if creds.UserID == 0 {
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}

	kind := ActorKindUser
	if creds.IsPlatformAdmin() {
		kind = ActorKindAdmin
	}

	userID := strconv.FormatInt(creds.UserID, 10)
	return AuditInfo{
		ActorKind: kind,
		UserID:    &userID,
		ClinicKey: creds.ClinicKey,
		RequestID: requestID,
	}, nil
}

// Anonymous builds an AuditInfo for unauthenticated requests (e.g., login).
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for background/CLI operations.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
