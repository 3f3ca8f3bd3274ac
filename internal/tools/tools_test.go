package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ebixref/internal/ebisearch"
	"github.com/temirov/ebixref/internal/ebisearch/ebisearchtest"
	"github.com/temirov/ebixref/internal/tools"
	"github.com/temirov/ebixref/internal/utils"
	"github.com/temirov/ebixref/internal/xref"
)

func newToolset(catalog *ebisearchtest.Server) *tools.Toolset {
	client := catalog.Client()
	discovery := xref.NewDiscoveryService(client, xref.NewDiscoveryCache(), nil)
	return tools.NewToolset(tools.Dependencies{
		Discovery:   discovery,
		Resolver:    xref.NewResolver(client, discovery),
		Aggregator:  xref.NewAggregator(client, discovery, xref.DefaultAggregatorOptions(), nil),
		ShapeLimits: utils.DefaultShapeLimits(),
	})
}

func TestInvokeDispatchesTools(t *testing.T) {
	catalog := ebisearchtest.NewServer(t)
	catalog.SetDomains("uniprot", "pdbe", "go")
	catalog.SetReferences("uniprot", "pdbe", "P69905", "1a00")
	catalog.SetReferences("uniprot", "pdbe", "P68871", "2hhb")
	toolset := newToolset(catalog)

	testCases := []struct {
		name         string
		tool         string
		arguments    string
		expectedText string
	}{
		{
			name:         "domain",
			tool:         tools.ToolDomain,
			arguments:    `{"domain":"uniprot"}`,
			expectedText: `{"sourceDomain":"uniprot","targetDomains":["pdbe","go"]}`,
		},
		{
			name:      "targeted_with_single_string",
			tool:      tools.ToolTargeted,
			arguments: `{"domain":"uniprot","entryIds":"P69905,P68871","targetDomain":"pdbe"}`,
			expectedText: `{"sourceDomain":"uniprot","targetDomain":"pdbe","count":2,"crossReferences":[
				{"sourceId":"P69905","targets":[{"id":"1a00","domain":"pdbe"}]},
				{"sourceId":"P68871","targets":[{"id":"2hhb","domain":"pdbe"}]}]}`,
		},
		{
			name:         "targeted_with_array",
			tool:         tools.ToolTargeted,
			arguments:    `{"domain":"uniprot","entryIds":["P69905"],"targetDomain":"pdbe"}`,
			expectedText: `{"sourceDomain":"uniprot","targetDomain":"pdbe","count":1,"crossReferences":[{"sourceId":"P69905","targets":[{"id":"1a00","domain":"pdbe"}]}]}`,
		},
		{
			name:         "aggregate",
			tool:         tools.ToolAll,
			arguments:    `{"domain":"uniprot","entryId":"P69905"}`,
			expectedText: `{"sourceDomain":"uniprot","sourceId":"P69905","count":1,"crossReferences":[{"targetDomain":"pdbe","entries":[{"id":"1a00"}]}]}`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := toolset.Invoke(context.Background(), testCase.tool, json.RawMessage(testCase.arguments))
			require.False(t, result.IsError, result.Text)
			require.Nil(t, result.Failure)
			require.True(t, strings.HasSuffix(result.Text, "\n"))
			require.JSONEq(t, testCase.expectedText, result.Text)
		})
	}
}

func TestAggregateShapingKeepsCountConsistent(t *testing.T) {
	catalog := ebisearchtest.NewServer(t)
	catalog.SetDomains("uniprot", "pdbe", "go")
	catalog.SetReferences("uniprot", "pdbe", "P1", "a", "b", "c")
	catalog.SetReferences("uniprot", "go", "P1", "x", "y", "z")
	client := catalog.Client()
	discovery := xref.NewDiscoveryService(client, xref.NewDiscoveryCache(), nil)

	expected := `{"sourceDomain":"uniprot","sourceId":"P1","count":6,"crossReferences":[
		{"targetDomain":"pdbe","entries":[{"id":"a"},{"id":"b"},{"id":"c"}]},
		{"targetDomain":"go","entries":[{"id":"x"},{"id":"y"},{"id":"z"}]}]}`

	testCases := []struct {
		name   string
		limits utils.ShapeLimits
	}{
		{name: "narrow_nested_items", limits: utils.ShapeLimits{NestedItems: 2}},
		{name: "narrow_top_level_items", limits: utils.ShapeLimits{TopLevelItems: 1}},
		{name: "shallow_depth", limits: utils.ShapeLimits{MaxDepth: 3}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			toolset := tools.NewToolset(tools.Dependencies{
				Discovery:   discovery,
				Resolver:    xref.NewResolver(client, discovery),
				Aggregator:  xref.NewAggregator(client, discovery, xref.DefaultAggregatorOptions(), nil),
				ShapeLimits: testCase.limits,
			})
			result := toolset.AggregateAll(context.Background(), "uniprot", "P1")
			require.False(t, result.IsError, result.Text)
			require.JSONEq(t, expected, result.Text)
		})
	}
}

func TestAggregateMinimalResultRendersTwoKeys(t *testing.T) {
	catalog := ebisearchtest.NewServer(t)
	catalog.SetDomains("uniprot")
	result := newToolset(catalog).AggregateAll(context.Background(), "uniprot", "P1")
	require.False(t, result.IsError)
	require.JSONEq(t, `{"sourceDomain":"uniprot","sourceId":"P1"}`, result.Text)
}

func TestInvokeReportsFailureKinds(t *testing.T) {
	catalog := ebisearchtest.NewServer(t)
	catalog.SetDomains("uniprot", "pdbe")
	catalog.FailDiscovery("broken", http.StatusServiceUnavailable)
	catalog.SetDomains("interpro", "pfam")
	catalog.FailTarget("interpro", "pfam", http.StatusInternalServerError)
	toolset := newToolset(catalog)

	testCases := []struct {
		name           string
		tool           string
		arguments      string
		expectedKind   tools.FailureKind
		expectedStatus int
	}{
		{name: "unknown_tool", tool: "xref_unknown", arguments: `{}`, expectedKind: tools.FailureInvalidArgument},
		{name: "malformed_arguments", tool: tools.ToolDomain, arguments: `{"domain":`, expectedKind: tools.FailureInvalidArgument},
		{name: "missing_domain", tool: tools.ToolDomain, arguments: `{}`, expectedKind: tools.FailureInvalidArgument},
		{name: "uniprot_entry_name", tool: tools.ToolTargeted, arguments: `{"domain":"uniprot","entryIds":["HBA_HUMAN"],"targetDomain":"pdbe"}`, expectedKind: tools.FailureInvalidArgument},
		{name: "unsupported", tool: tools.ToolTargeted, arguments: `{"domain":"uniprot","entryIds":["P1"],"targetDomain":"ensembl"}`, expectedKind: tools.FailureUnsupportedCrossReference},
		{name: "discovery", tool: tools.ToolAll, arguments: `{"domain":"broken","entryId":"X"}`, expectedKind: tools.FailureDiscovery, expectedStatus: http.StatusServiceUnavailable},
		{name: "upstream", tool: tools.ToolTargeted, arguments: `{"domain":"interpro","entryIds":"IPR1","targetDomain":"pfam"}`, expectedKind: tools.FailureUpstream, expectedStatus: http.StatusInternalServerError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := toolset.Invoke(context.Background(), testCase.tool, json.RawMessage(testCase.arguments))
			require.True(t, result.IsError)
			require.NotNil(t, result.Failure)
			require.Equal(t, testCase.expectedKind, result.Failure.Kind)
			require.Equal(t, testCase.expectedStatus, result.Failure.UpstreamStatus)
			require.Nil(t, result.Structured)
			require.Equal(t, result.Failure.Message, result.Text)
		})
	}
}

func TestClassifyAndHTTPStatus(t *testing.T) {
	statusError := &ebisearch.StatusError{StatusCode: http.StatusTooManyRequests, URL: "http://catalog"}
	testCases := []struct {
		name           string
		err            error
		expectedKind   tools.FailureKind
		expectedHTTP   int
		expectedStatus int
	}{
		{name: "invalid", err: fmt.Errorf("%w: domain is required", xref.ErrInvalidArgument), expectedKind: tools.FailureInvalidArgument, expectedHTTP: http.StatusBadRequest},
		{name: "unsupported", err: &xref.UnsupportedCrossReferenceError{SourceDomain: "a", TargetDomain: "b"}, expectedKind: tools.FailureUnsupportedCrossReference, expectedHTTP: http.StatusUnprocessableEntity},
		{name: "discovery", err: &xref.DiscoveryError{Domain: "a", Cause: statusError}, expectedKind: tools.FailureDiscovery, expectedHTTP: http.StatusBadGateway, expectedStatus: http.StatusTooManyRequests},
		{name: "upstream", err: &xref.UpstreamError{Operation: "resolve", Cause: errors.New("reset")}, expectedKind: tools.FailureUpstream, expectedHTTP: http.StatusBadGateway},
		{name: "internal", err: errors.New("surprise"), expectedKind: tools.FailureInternal, expectedHTTP: http.StatusInternalServerError},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			failure := tools.Classify(testCase.err)
			require.Equal(t, testCase.expectedKind, failure.Kind)
			require.Equal(t, testCase.expectedHTTP, failure.HTTPStatus())
			require.Equal(t, testCase.expectedStatus, failure.UpstreamStatus)
			require.Equal(t, testCase.err.Error(), failure.Message)
		})
	}
}

func TestDescribeListsKnownTools(t *testing.T) {
	catalog := ebisearchtest.NewServer(t)
	descriptions := newToolset(catalog).Describe()
	names := make([]string, 0, len(descriptions))
	for _, description := range descriptions {
		names = append(names, description.Name)
	}
	require.Equal(t, []string{tools.ToolAll, tools.ToolDomain, tools.ToolTargeted}, names)
}
