package xref

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/ebixref/internal/ebisearch"
)

// Catalog is the remote cross-reference catalog.
type Catalog interface {
	DomainTargets(ctx context.Context, domain string) ([]string, error)
	EntryReferences(ctx context.Context, domain string, entryIDs []string, targetDomain string) ([]ebisearch.EntryReferences, error)
}

// DiscoveryService resolves the valid target domains of a source domain.
type DiscoveryService struct {
	catalog Catalog
	cache   *DiscoveryCache
	logger  *zap.Logger
}

// NewDiscoveryService constructs a DiscoveryService. The cache is shared by every
// caller that should see the same discovered sets; nil allocates a private one.
func NewDiscoveryService(catalog Catalog, cache *DiscoveryCache, logger *zap.Logger) *DiscoveryService {
	if cache == nil {
		cache = NewDiscoveryCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryService{catalog: catalog, cache: cache, logger: logger}
}

// Discover returns the valid target domains of sourceDomain in catalog order.
func (service *DiscoveryService) Discover(ctx context.Context, sourceDomain string) ([]string, error) {
	domain := strings.TrimSpace(sourceDomain)
	if domain == "" {
		return nil, invalidArgument("domain is required")
	}
	return service.cache.GetOrPopulate(ctx, domain, func(populateCtx context.Context) ([]string, error) {
		targets, fetchErr := service.catalog.DomainTargets(populateCtx, domain)
		if fetchErr != nil {
			return nil, &DiscoveryError{Domain: domain, Cause: fetchErr}
		}
		normalized := normalizeDomains(targets)
		service.logger.Debug("discovered cross-reference targets",
			zap.String("domain", domain),
			zap.Int("targets", len(normalized)),
		)
		return normalized, nil
	})
}

// Supports reports whether targetDomain is a discovered target of sourceDomain.
func (service *DiscoveryService) Supports(ctx context.Context, sourceDomain string, targetDomain string) (bool, error) {
	targets, err := service.Discover(ctx, sourceDomain)
	if err != nil {
		return false, err
	}
	for _, target := range targets {
		if target == targetDomain {
			return true, nil
		}
	}
	return false, nil
}
