// Package xref resolves and aggregates cross-references between EBI Search domains.
package xref

import (
	"strings"

	"github.com/temirov/ebixref/internal/utils"
)

// UniProtDomain is the source domain whose entry ids must be accessions.
const UniProtDomain = "uniprot"

// DomainTargets is the discovery payload for one source domain.
type DomainTargets struct {
	SourceDomain  string   `json:"sourceDomain"`
	TargetDomains []string `json:"targetDomains"`
}

// TargetReference is one reference advertised for a source entry.
type TargetReference struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

// EntryCrossReferences groups the references of one source entry.
type EntryCrossReferences struct {
	SourceID string            `json:"sourceId"`
	Targets  []TargetReference `json:"targets"`
}

// TargetedResult is the outcome of a targeted resolution.
type TargetedResult struct {
	SourceDomain    string                 `json:"sourceDomain"`
	TargetDomain    string                 `json:"targetDomain"`
	Count           int                    `json:"count"`
	CrossReferences []EntryCrossReferences `json:"crossReferences"`
}

// EntryRef is one target entry inside an aggregated group.
type EntryRef struct {
	ID string `json:"id"`
}

// DomainGroup holds the bounded entries of one target domain.
type DomainGroup struct {
	TargetDomain string     `json:"targetDomain"`
	Entries      []EntryRef `json:"entries"`
}

// AggregateResult is the ranked, size-bounded cross-reference summary of one entry.
// A result with nil CrossReferences is the minimal form and serializes without
// the count and crossReferences keys.
type AggregateResult struct {
	SourceDomain    string        `json:"sourceDomain"`
	SourceID        string        `json:"sourceId"`
	Count           *int          `json:"count,omitempty"`
	CrossReferences []DomainGroup `json:"crossReferences,omitempty"`
}

// IsMinimal reports whether nothing was aggregated.
func (result AggregateResult) IsMinimal() bool {
	return result.CrossReferences == nil
}

func minimalResult(sourceDomain string, sourceID string) AggregateResult {
	return AggregateResult{SourceDomain: sourceDomain, SourceID: sourceID}
}

// NormalizeEntryIDs trims ids, splits comma-separated values, drops blanks and duplicates.
func NormalizeEntryIDs(entryIDs []string) []string {
	seen := map[string]struct{}{}
	normalized := make([]string, 0, len(entryIDs))
	for _, raw := range entryIDs {
		for _, candidate := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(candidate)
			if trimmed == "" {
				continue
			}
			if _, exists := seen[trimmed]; exists {
				continue
			}
			seen[trimmed] = struct{}{}
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}

func normalizeDomains(domains []string) []string {
	return utils.DeduplicateStrings(domains)
}
