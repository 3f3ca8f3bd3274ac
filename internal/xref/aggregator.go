package xref

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxFetchDomains bounds how many target domains are queried per aggregation.
	DefaultMaxFetchDomains = 10
	// DefaultMaxReturnDomains bounds how many target-domain groups are returned.
	DefaultMaxReturnDomains = 3
	// DefaultMaxEntriesPerDomain bounds how many ids are returned per group.
	DefaultMaxEntriesPerDomain = 3
	// DefaultFetchConcurrency bounds how many fan-out fetches run at once.
	DefaultFetchConcurrency = 4
)

// DefaultPriorityDomains are ranked ahead of every other target domain.
func DefaultPriorityDomains() []string {
	return []string{"alphafold", "pdbe", "go"}
}

// AggregatorOptions configures the fan-out and output budgets.
type AggregatorOptions struct {
	MaxFetchDomains     int
	MaxReturnDomains    int
	MaxEntriesPerDomain int
	FetchConcurrency    int
	PriorityDomains     []string
}

// DefaultAggregatorOptions returns the stock budgets.
func DefaultAggregatorOptions() AggregatorOptions {
	return AggregatorOptions{
		MaxFetchDomains:     DefaultMaxFetchDomains,
		MaxReturnDomains:    DefaultMaxReturnDomains,
		MaxEntriesPerDomain: DefaultMaxEntriesPerDomain,
		FetchConcurrency:    DefaultFetchConcurrency,
		PriorityDomains:     DefaultPriorityDomains(),
	}
}

func (options AggregatorOptions) normalized() AggregatorOptions {
	defaults := DefaultAggregatorOptions()
	if options.MaxFetchDomains <= 0 {
		options.MaxFetchDomains = defaults.MaxFetchDomains
	}
	if options.MaxReturnDomains <= 0 {
		options.MaxReturnDomains = defaults.MaxReturnDomains
	}
	if options.MaxEntriesPerDomain <= 0 {
		options.MaxEntriesPerDomain = defaults.MaxEntriesPerDomain
	}
	if options.FetchConcurrency <= 0 {
		options.FetchConcurrency = defaults.FetchConcurrency
	}
	if options.FetchConcurrency > options.MaxFetchDomains {
		options.FetchConcurrency = options.MaxFetchDomains
	}
	if options.PriorityDomains == nil {
		options.PriorityDomains = defaults.PriorityDomains
	}
	options.PriorityDomains = normalizeDomains(options.PriorityDomains)
	return options
}

// Aggregator summarizes the cross-references of one entry across every valid target domain.
type Aggregator struct {
	catalog   Catalog
	discovery *DiscoveryService
	options   AggregatorOptions
	logger    *zap.Logger
}

// NewAggregator constructs an Aggregator. Zero-valued budgets fall back to defaults.
func NewAggregator(catalog Catalog, discovery *DiscoveryService, options AggregatorOptions, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		catalog:   catalog,
		discovery: discovery,
		options:   options.normalized(),
		logger:    logger,
	}
}

// Options reports the effective budgets.
func (aggregator *Aggregator) Options() AggregatorOptions {
	return aggregator.options
}

// fetchOutcome is the result of one fan-out attempt. Outcomes carrying an error
// are dropped from the aggregate.
type fetchOutcome struct {
	targetDomain string
	identifiers  []string
	err          error
}

type domainBucket struct {
	targetDomain string
	order        int
	identifiers  []string
	seen         map[string]struct{}
}

func (bucket *domainBucket) add(identifier string) {
	if identifier == "" {
		return
	}
	if _, exists := bucket.seen[identifier]; exists {
		return
	}
	bucket.seen[identifier] = struct{}{}
	bucket.identifiers = append(bucket.identifiers, identifier)
}

// AggregateAll fans out over the prioritized valid targets of sourceDomain and returns
// a ranked, bounded summary. Only discovery failures are returned as errors.
func (aggregator *Aggregator) AggregateAll(ctx context.Context, sourceDomain string, sourceEntryID string) (AggregateResult, error) {
	domain := strings.TrimSpace(sourceDomain)
	entryID := strings.TrimSpace(sourceEntryID)
	if domain == "" || entryID == "" {
		return AggregateResult{}, invalidArgument("domain and entryId are required")
	}

	targets, discoveryErr := aggregator.discovery.Discover(ctx, domain)
	if discoveryErr != nil {
		return AggregateResult{}, discoveryErr
	}
	if len(targets) == 0 {
		return minimalResult(domain, entryID), nil
	}

	candidates := aggregator.candidateOrder(targets)
	outcomes := aggregator.fanOut(ctx, domain, entryID, candidates)

	buckets := map[string]*domainBucket{}
	for index, outcome := range outcomes {
		if outcome.err != nil {
			aggregator.logger.Debug("skipping cross-reference target",
				zap.String("domain", domain),
				zap.String("target", outcome.targetDomain),
				zap.Error(outcome.err),
			)
			continue
		}
		for _, identifier := range outcome.identifiers {
			bucket, exists := buckets[outcome.targetDomain]
			if !exists {
				bucket = &domainBucket{targetDomain: outcome.targetDomain, order: index, seen: map[string]struct{}{}}
				buckets[outcome.targetDomain] = bucket
			}
			bucket.add(identifier)
		}
	}

	ranked := aggregator.rank(buckets)
	if len(ranked) == 0 {
		return minimalResult(domain, entryID), nil
	}
	if len(ranked) > aggregator.options.MaxReturnDomains {
		ranked = ranked[:aggregator.options.MaxReturnDomains]
	}

	total := 0
	groups := make([]DomainGroup, 0, len(ranked))
	for _, bucket := range ranked {
		identifiers := bucket.identifiers
		if len(identifiers) > aggregator.options.MaxEntriesPerDomain {
			identifiers = identifiers[:aggregator.options.MaxEntriesPerDomain]
		}
		entries := make([]EntryRef, 0, len(identifiers))
		for _, identifier := range identifiers {
			entries = append(entries, EntryRef{ID: identifier})
		}
		total += len(entries)
		groups = append(groups, DomainGroup{TargetDomain: bucket.targetDomain, Entries: entries})
	}
	return AggregateResult{
		SourceDomain:    domain,
		SourceID:        entryID,
		Count:           &total,
		CrossReferences: groups,
	}, nil
}

// candidateOrder lists priority targets present in targets first, then the rest in
// discovery order, truncated to the fan-out budget.
func (aggregator *Aggregator) candidateOrder(targets []string) []string {
	valid := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		valid[target] = struct{}{}
	}
	seen := map[string]struct{}{}
	candidates := make([]string, 0, len(targets))
	appendCandidate := func(target string) {
		if _, ok := valid[target]; !ok {
			return
		}
		if _, exists := seen[target]; exists {
			return
		}
		seen[target] = struct{}{}
		candidates = append(candidates, target)
	}
	for _, priority := range aggregator.options.PriorityDomains {
		appendCandidate(priority)
	}
	for _, target := range targets {
		appendCandidate(target)
	}
	if len(candidates) > aggregator.options.MaxFetchDomains {
		candidates = candidates[:aggregator.options.MaxFetchDomains]
	}
	return candidates
}

func (aggregator *Aggregator) fanOut(ctx context.Context, domain string, entryID string, candidates []string) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(candidates))
	var group errgroup.Group
	group.SetLimit(aggregator.options.FetchConcurrency)
	for index, target := range candidates {
		index, target := index, target
		group.Go(func() error {
			outcomes[index] = aggregator.fetchTarget(ctx, domain, entryID, target)
			return nil
		})
	}
	_ = group.Wait()
	return outcomes
}

func (aggregator *Aggregator) fetchTarget(ctx context.Context, domain string, entryID string, target string) fetchOutcome {
	outcome := fetchOutcome{targetDomain: target}
	entries, err := aggregator.catalog.EntryReferences(ctx, domain, []string{entryID}, target)
	if err != nil {
		outcome.err = err
		return outcome
	}
	for _, entry := range entries {
		for _, reference := range entry.References {
			outcome.identifiers = append(outcome.identifiers, reference.ID)
		}
	}
	return outcome
}

// rank orders buckets: priority domains in priority order, then by descending size,
// then by candidate order.
func (aggregator *Aggregator) rank(buckets map[string]*domainBucket) []*domainBucket {
	priorityIndex := make(map[string]int, len(aggregator.options.PriorityDomains))
	for index, priority := range aggregator.options.PriorityDomains {
		priorityIndex[priority] = index
	}
	ranked := make([]*domainBucket, 0, len(buckets))
	for _, bucket := range buckets {
		if len(bucket.identifiers) == 0 {
			continue
		}
		ranked = append(ranked, bucket)
	}
	sort.SliceStable(ranked, func(left, right int) bool {
		leftPriority, leftIsPriority := priorityIndex[ranked[left].targetDomain]
		rightPriority, rightIsPriority := priorityIndex[ranked[right].targetDomain]
		switch {
		case leftIsPriority && rightIsPriority:
			return leftPriority < rightPriority
		case leftIsPriority != rightIsPriority:
			return leftIsPriority
		}
		leftSize := len(ranked[left].identifiers)
		rightSize := len(ranked[right].identifiers)
		if leftSize != rightSize {
			return leftSize > rightSize
		}
		return ranked[left].order < ranked[right].order
	})
	return ranked
}
