package xref

import (
	"context"
	"fmt"
	"strings"
)

const uniProtAccessionHint = "for UniProt cross-references use an accession (e.g. P04637), not an entry name (P53_HUMAN)"

// Resolver resolves entry-level cross-references into one named target domain.
type Resolver struct {
	catalog   Catalog
	discovery *DiscoveryService
}

// NewResolver constructs a Resolver validating targets through discovery.
func NewResolver(catalog Catalog, discovery *DiscoveryService) *Resolver {
	return &Resolver{catalog: catalog, discovery: discovery}
}

// ResolveTargeted returns the references of every requested entry into targetDomain.
// Unsupported targets are rejected before the targeted endpoint is queried.
func (resolver *Resolver) ResolveTargeted(ctx context.Context, sourceDomain string, entryIDs []string, targetDomain string) (TargetedResult, error) {
	domain := strings.TrimSpace(sourceDomain)
	target := strings.TrimSpace(targetDomain)
	identifiers := NormalizeEntryIDs(entryIDs)
	if domain == "" || len(identifiers) == 0 || target == "" {
		return TargetedResult{}, invalidArgument("domain, entryIds, and targetDomain are required")
	}
	if domain == UniProtDomain {
		for _, identifier := range identifiers {
			if strings.Contains(identifier, "_") {
				return TargetedResult{}, invalidArgument("%s: got %q", uniProtAccessionHint, identifier)
			}
		}
	}

	supported, discoveryErr := resolver.discovery.Supports(ctx, domain, target)
	if discoveryErr != nil {
		return TargetedResult{}, discoveryErr
	}
	if !supported {
		return TargetedResult{}, &UnsupportedCrossReferenceError{SourceDomain: domain, TargetDomain: target}
	}

	entries, fetchErr := resolver.catalog.EntryReferences(ctx, domain, identifiers, target)
	if fetchErr != nil {
		return TargetedResult{}, &UpstreamError{
			Operation: fmt.Sprintf("resolve %s cross-references for %s", target, domain),
			Cause:     fetchErr,
		}
	}

	crossReferences := make([]EntryCrossReferences, 0, len(entries))
	for _, entry := range entries {
		seen := map[string]struct{}{}
		targets := make([]TargetReference, 0, len(entry.References))
		for _, reference := range entry.References {
			if reference.ID == "" {
				continue
			}
			if _, exists := seen[reference.ID]; exists {
				continue
			}
			seen[reference.ID] = struct{}{}
			referenceDomain := reference.Source
			if referenceDomain == "" {
				referenceDomain = target
			}
			targets = append(targets, TargetReference{ID: reference.ID, Domain: referenceDomain})
		}
		crossReferences = append(crossReferences, EntryCrossReferences{SourceID: entry.ID, Targets: targets})
	}
	return TargetedResult{
		SourceDomain:    domain,
		TargetDomain:    target,
		Count:           len(crossReferences),
		CrossReferences: crossReferences,
	}, nil
}
