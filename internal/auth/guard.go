package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/logging"
)

// Request is one authorization check.
type Request struct {
	Subject    string
	Credential string
	// Operation is the permission category the request needs. Empty means
	// the caller declared none.
	Operation string
	// Public marks requests that need an identity but no permission.
	Public bool
}

// GuardOptions configures a Guard.
type GuardOptions struct {
	// AllowUnannotated lets requests without an operation through. It
	// exists for deployments that relied on the old open-by-default
	// behavior; every such request is logged.
	AllowUnannotated bool
	Logger           *zap.Logger
}

// Guard authorizes requests against the permission cache. Requests with no
// operation are denied unless they are public or AllowUnannotated is set.
type Guard struct {
	cache            *Cache
	allowUnannotated bool
	logger           *zap.Logger
}

// NewGuard creates a guard backed by cache.
func NewGuard(cache *Cache, opts GuardOptions) *Guard {
	return &Guard{
		cache:            cache,
		allowUnannotated: opts.AllowUnannotated,
		logger:           logging.OrNop(opts.Logger),
	}
}

// Authorize returns nil when the request may proceed and a
// PermissionDeniedError otherwise.
func (g *Guard) Authorize(ctx context.Context, req Request) error {
	if req.Subject == "" {
		return cqlerr.PermissionDeniedf("caller identity is required")
	}
	if req.Public {
		return nil
	}
	if req.Operation == "" {
		if g.allowUnannotated {
			g.logger.Warn("allowing request without a declared operation",
				zap.String("subject", req.Subject))
			return nil
		}
		return cqlerr.PermissionDeniedf("request declares no operation")
	}
	if !g.cache.HasPermission(ctx, req.Subject, req.Operation, req.Credential) {
		g.logger.Info("permission denied",
			zap.String("subject", req.Subject),
			zap.String("operation", req.Operation))
		return cqlerr.PermissionDeniedf("%s is not allowed to run %s statements", req.Subject, req.Operation)
	}
	return nil
}
