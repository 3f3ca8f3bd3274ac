package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/temirov/ebixref/internal/tools"
	"github.com/temirov/ebixref/internal/xref"
)

const (
	rawEmptyMarker    = "(none)"
	rawListSeparator  = ", "
	unknownToolFormat = "no raw rendering for tool %q"
)

// renderRaw turns the JSON text of a tool result into a compact line-oriented summary.
func renderRaw(toolName string, text string) (string, error) {
	builder := &strings.Builder{}
	switch toolName {
	case tools.ToolDomain:
		var targets xref.DomainTargets
		if err := json.Unmarshal([]byte(text), &targets); err != nil {
			return "", fmt.Errorf("decode %s result: %w", toolName, err)
		}
		fmt.Fprintf(builder, "%s -> %s\n", targets.SourceDomain, joinOrMarker(targets.TargetDomains))
	case tools.ToolTargeted:
		var result xref.TargetedResult
		if err := json.Unmarshal([]byte(text), &result); err != nil {
			return "", fmt.Errorf("decode %s result: %w", toolName, err)
		}
		fmt.Fprintf(builder, "%s -> %s (%d entries)\n", result.SourceDomain, result.TargetDomain, result.Count)
		for _, entry := range result.CrossReferences {
			identifiers := make([]string, 0, len(entry.Targets))
			for _, target := range entry.Targets {
				identifiers = append(identifiers, target.ID)
			}
			fmt.Fprintf(builder, "  %s: %s\n", entry.SourceID, joinOrMarker(identifiers))
		}
	case tools.ToolAll:
		var result xref.AggregateResult
		if err := json.Unmarshal([]byte(text), &result); err != nil {
			return "", fmt.Errorf("decode %s result: %w", toolName, err)
		}
		if result.IsMinimal() {
			fmt.Fprintf(builder, "%s %s: %s\n", result.SourceDomain, result.SourceID, rawEmptyMarker)
			return builder.String(), nil
		}
		count := 0
		if result.Count != nil {
			count = *result.Count
		}
		fmt.Fprintf(builder, "%s %s (%d references)\n", result.SourceDomain, result.SourceID, count)
		for _, group := range result.CrossReferences {
			identifiers := make([]string, 0, len(group.Entries))
			for _, entry := range group.Entries {
				identifiers = append(identifiers, entry.ID)
			}
			fmt.Fprintf(builder, "  %s: %s\n", group.TargetDomain, joinOrMarker(identifiers))
		}
	default:
		return "", fmt.Errorf(unknownToolFormat, toolName)
	}
	return builder.String(), nil
}

func joinOrMarker(values []string) string {
	if len(values) == 0 {
		return rawEmptyMarker
	}
	return strings.Join(values, rawListSeparator)
}
