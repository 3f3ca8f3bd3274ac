// Package tools exposes cross-reference operations as named tool calls that return
// a structured payload and its text rendering.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/ebixref/internal/utils"
	"github.com/temirov/ebixref/internal/xref"
)

const (
	// ToolDomain lists the valid target domains of a source domain.
	ToolDomain = "xref_domain"
	// ToolTargeted resolves cross-references into one target domain.
	ToolTargeted = "xref_targeted"
	// ToolAll aggregates cross-references across every valid target domain.
	ToolAll = "xref_all"

	// minimumAggregateDepth keeps entry ids of an aggregate payload inside the shaping depth.
	minimumAggregateDepth = 6
)

// Result is the outcome of one tool call.
type Result struct {
	Structured interface{} `json:"structuredContent,omitempty"`
	Text       string      `json:"text"`
	IsError    bool        `json:"isError,omitempty"`
	Failure    *Failure    `json:"failure,omitempty"`
}

// Description names a tool and its arguments.
type Description struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Toolset binds the cross-reference services to tool names.
type Toolset struct {
	discovery  *xref.DiscoveryService
	resolver   *xref.Resolver
	aggregator *xref.Aggregator
	limits     utils.ShapeLimits
	logger     *zap.Logger
}

// Dependencies carries the services a Toolset dispatches to.
type Dependencies struct {
	Discovery   *xref.DiscoveryService
	Resolver    *xref.Resolver
	Aggregator  *xref.Aggregator
	ShapeLimits utils.ShapeLimits
	Logger      *zap.Logger
}

// NewToolset constructs a Toolset.
func NewToolset(dependencies Dependencies) *Toolset {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limits := dependencies.ShapeLimits
	if dependencies.Aggregator != nil {
		limits = aggregateShapeLimits(limits, dependencies.Aggregator.Options())
	}
	return &Toolset{
		discovery:  dependencies.Discovery,
		resolver:   dependencies.Resolver,
		aggregator: dependencies.Aggregator,
		limits:     limits,
		logger:     logger,
	}
}

// aggregateShapeLimits raises limits to the aggregate budgets so shaping never removes
// groups or ids that count already includes.
func aggregateShapeLimits(limits utils.ShapeLimits, options xref.AggregatorOptions) utils.ShapeLimits {
	budget := max(options.MaxReturnDomains, options.MaxEntriesPerDomain)
	limits.MaxDepth = max(limits.MaxDepth, minimumAggregateDepth)
	limits.TopLevelItems = max(limits.TopLevelItems, budget)
	limits.NestedItems = max(limits.NestedItems, budget)
	return limits
}

// Describe lists the tools in name order.
func (toolset *Toolset) Describe() []Description {
	descriptions := []Description{
		{Name: ToolAll, Description: "Summarize cross-references of one entry across every valid target domain (arguments: domain, entryId)"},
		{Name: ToolDomain, Description: "List the domains a source domain can be cross-referenced into (arguments: domain)"},
		{Name: ToolTargeted, Description: "Resolve cross-references of one or more entries into one target domain (arguments: domain, entryIds, targetDomain)"},
	}
	sort.Slice(descriptions, func(left, right int) bool {
		return descriptions[left].Name < descriptions[right].Name
	})
	return descriptions
}

type domainArguments struct {
	Domain string `json:"domain"`
}

type targetedArguments struct {
	Domain       string   `json:"domain"`
	EntryIDs     entryIDs `json:"entryIds"`
	TargetDomain string   `json:"targetDomain"`
}

type allArguments struct {
	Domain  string `json:"domain"`
	EntryID string `json:"entryId"`
}

// entryIDs accepts either a single string or an array of strings.
type entryIDs []string

func (identifiers *entryIDs) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*identifiers = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*identifiers = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*identifiers = []string{single}
	return nil
}

// Invoke decodes arguments and dispatches to the named tool. Failures are reported
// inside the Result rather than as a Go error.
func (toolset *Toolset) Invoke(ctx context.Context, name string, arguments json.RawMessage) Result {
	switch name {
	case ToolDomain:
		var decoded domainArguments
		if err := decodeArguments(arguments, &decoded); err != nil {
			return toolset.failure(name, err)
		}
		return toolset.Discover(ctx, decoded.Domain)
	case ToolTargeted:
		var decoded targetedArguments
		if err := decodeArguments(arguments, &decoded); err != nil {
			return toolset.failure(name, err)
		}
		return toolset.ResolveTargeted(ctx, decoded.Domain, decoded.EntryIDs, decoded.TargetDomain)
	case ToolAll:
		var decoded allArguments
		if err := decodeArguments(arguments, &decoded); err != nil {
			return toolset.failure(name, err)
		}
		return toolset.AggregateAll(ctx, decoded.Domain, decoded.EntryID)
	default:
		return toolset.failure(name, fmt.Errorf("%w: unknown tool %q", xref.ErrInvalidArgument, name))
	}
}

// Discover lists the valid target domains of domain.
func (toolset *Toolset) Discover(ctx context.Context, domain string) Result {
	targets, err := toolset.discovery.Discover(ctx, domain)
	if err != nil {
		return toolset.failure(ToolDomain, err)
	}
	return toolset.success(ToolDomain, xref.DomainTargets{
		SourceDomain:  strings.TrimSpace(domain),
		TargetDomains: targets,
	}, false)
}

// ResolveTargeted resolves the references of entryIDs into targetDomain.
func (toolset *Toolset) ResolveTargeted(ctx context.Context, domain string, entryIDs []string, targetDomain string) Result {
	result, err := toolset.resolver.ResolveTargeted(ctx, domain, entryIDs, targetDomain)
	if err != nil {
		return toolset.failure(ToolTargeted, err)
	}
	return toolset.success(ToolTargeted, result, false)
}

// AggregateAll summarizes the cross-references of one entry.
func (toolset *Toolset) AggregateAll(ctx context.Context, domain string, entryID string) Result {
	result, err := toolset.aggregator.AggregateAll(ctx, domain, entryID)
	if err != nil {
		return toolset.failure(ToolAll, err)
	}
	return toolset.success(ToolAll, result, true)
}

func (toolset *Toolset) success(name string, payload interface{}, shaped bool) Result {
	structured := payload
	if shaped {
		shapedPayload, shapeErr := utils.ShapeStruct(payload, toolset.limits)
		if shapeErr != nil {
			return toolset.failure(name, shapeErr)
		}
		structured = shapedPayload
	}
	text, renderErr := RenderText(structured)
	if renderErr != nil {
		return toolset.failure(name, renderErr)
	}
	return Result{Structured: structured, Text: text}
}

func (toolset *Toolset) failure(name string, err error) Result {
	failure := Classify(err)
	toolset.logger.Debug("tool call failed",
		zap.String("tool", name),
		zap.String("kind", string(failure.Kind)),
		zap.Error(err),
	)
	return Result{Text: failure.Message, IsError: true, Failure: &failure}
}

// RenderText renders a payload as indented JSON followed by a newline.
func RenderText(payload interface{}) (string, error) {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render tool payload: %w", err)
	}
	return string(encoded) + "\n", nil
}

func decodeArguments(arguments json.RawMessage, target interface{}) error {
	if len(strings.TrimSpace(string(arguments))) == 0 {
		return nil
	}
	if err := json.Unmarshal(arguments, target); err != nil {
		return fmt.Errorf("%w: decode arguments: %v", xref.ErrInvalidArgument, err)
	}
	return nil
}
