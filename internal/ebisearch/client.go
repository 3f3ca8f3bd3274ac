// Package ebisearch is a client for the cross-reference endpoints of the EBI Search REST service.
package ebisearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL   = "https://www.ebi.ac.uk/ebisearch/ws/rest"
	defaultAPITimeout   = 30 * time.Second
	defaultUserAgent    = "ebixref"
	headerAccept        = "Accept"
	headerContentType   = "Content-Type"
	headerUserAgent     = "User-Agent"
	mimeTypeJSON        = "application/json"
	formatQueryKey      = "format"
	formatQueryJSON     = "json"
	xrefPathSegment     = "xref"
	entryPathSegment    = "entry"
	entryIDSeparator    = ","
	bodySnippetLimit    = 200
	errorBodyReadLimit  = 8 * 1024
	domainsFieldName    = "domains"
	entriesFieldName    = "entries"
	unexpectedFormatMsg = "unexpected API response format"
)

var (
	errMissingDomain    = errors.New("domain is required")
	errMissingEntryIDs  = errors.New("at least one entry id is required")
	errMissingTarget    = errors.New("target domain is required")
	errNonJSONResponse  = errors.New("EBI Search returned non-JSON response")
	errUnexpectedFormat = errors.New(unexpectedFormatMsg)
)

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// StatusError reports a non-success HTTP status from EBI Search.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (statusError *StatusError) Error() string {
	if statusError.Body == "" {
		return fmt.Sprintf("unexpected status %d for %s", statusError.StatusCode, statusError.URL)
	}
	return fmt.Sprintf("unexpected status %d for %s: %s", statusError.StatusCode, statusError.URL, statusError.Body)
}

// Reference is one cross-reference advertised for an entry.
type Reference struct {
	ID     string
	Source string
}

// EntryReferences lists the references returned for one source entry.
type EntryReferences struct {
	ID         string
	References []Reference
}

// Client queries EBI Search.
type Client struct {
	client    httpClient
	apiBase   string
	userAgent string
	timeout   time.Duration
}

// NewClient constructs a Client. A nil http client selects a default one.
func NewClient(client httpClient) Client {
	if client == nil {
		client = &http.Client{}
	}
	return Client{
		client:    client,
		apiBase:   defaultAPIBaseURL,
		userAgent: defaultUserAgent,
		timeout:   defaultAPITimeout,
	}
}

// WithAPIBase points the client at another service root; blank keeps the current one.
func (client Client) WithAPIBase(base string) Client {
	if strings.TrimSpace(base) == "" {
		return client
	}
	client.apiBase = strings.TrimRight(strings.TrimSpace(base), "/")
	return client
}

// WithUserAgent sets the User-Agent header sent with every request.
func (client Client) WithUserAgent(agent string) Client {
	if agent == "" {
		return client
	}
	client.userAgent = agent
	return client
}

// WithTimeout sets the deadline applied to every individual request.
func (client Client) WithTimeout(duration time.Duration) Client {
	if duration <= 0 {
		return client
	}
	client.timeout = duration
	return client
}

// DomainTargets returns the ids of the domains the source domain can be cross-referenced into.
func (client Client) DomainTargets(ctx context.Context, domain string) ([]string, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, errMissingDomain
	}
	requestURL, buildErr := client.buildURL(domain, xrefPathSegment)
	if buildErr != nil {
		return nil, buildErr
	}
	var payload domainsPayload
	if fetchErr := client.getJSON(ctx, requestURL, &payload); fetchErr != nil {
		return nil, fetchErr
	}
	if payload.Domains == nil {
		return nil, fmt.Errorf("%w: %s not found", errUnexpectedFormat, domainsFieldName)
	}
	targets := make([]string, 0, len(*payload.Domains))
	for _, descriptor := range *payload.Domains {
		targetID := descriptor.ID.String()
		if targetID == "" {
			continue
		}
		targets = append(targets, targetID)
	}
	return targets, nil
}

// EntryReferences returns, per source entry, the references into targetDomain.
func (client Client) EntryReferences(ctx context.Context, domain string, entryIDs []string, targetDomain string) ([]EntryReferences, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, errMissingDomain
	}
	if len(entryIDs) == 0 {
		return nil, errMissingEntryIDs
	}
	if strings.TrimSpace(targetDomain) == "" {
		return nil, errMissingTarget
	}
	requestURL, buildErr := client.buildURL(domain, entryPathSegment, strings.Join(entryIDs, entryIDSeparator), xrefPathSegment, targetDomain)
	if buildErr != nil {
		return nil, buildErr
	}
	var payload entriesPayload
	if fetchErr := client.getJSON(ctx, requestURL, &payload); fetchErr != nil {
		return nil, fetchErr
	}
	if payload.Entries == nil {
		return nil, fmt.Errorf("%w: %s not found", errUnexpectedFormat, entriesFieldName)
	}
	results := make([]EntryReferences, 0, len(*payload.Entries))
	for _, entry := range *payload.Entries {
		references := make([]Reference, 0, len(entry.References))
		for _, reference := range entry.References {
			references = append(references, Reference{
				ID:     reference.ID.String(),
				Source: reference.Source.String(),
			})
		}
		results = append(results, EntryReferences{
			ID:         entry.ID.String(),
			References: references,
		})
	}
	return results, nil
}

func (client Client) getJSON(ctx context.Context, requestURL string, target interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()
	request, requestErr := client.buildRequest(requestCtx, requestURL)
	if requestErr != nil {
		return requestErr
	}
	response, responseErr := client.client.Do(request)
	if responseErr != nil {
		return responseErr
	}
	defer response.Body.Close()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyReadLimit))
		return &StatusError{
			StatusCode: response.StatusCode,
			URL:        requestURL,
			Body:       snippet(string(body)),
		}
	}
	if !strings.Contains(response.Header.Get(headerContentType), mimeTypeJSON) {
		body, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyReadLimit))
		return fmt.Errorf("%w: %s", errNonJSONResponse, snippet(string(body)))
	}
	if decodeErr := json.NewDecoder(response.Body).Decode(target); decodeErr != nil {
		return fmt.Errorf("decode response from %s: %w", requestURL, decodeErr)
	}
	return nil
}

func (client Client) buildRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if requestErr != nil {
		return nil, requestErr
	}
	request.Header.Set(headerAccept, mimeTypeJSON)
	if client.userAgent != "" {
		request.Header.Set(headerUserAgent, client.userAgent)
	}
	return request, nil
}

func (client Client) buildURL(segments ...string) (string, error) {
	parsedURL, parseErr := url.Parse(client.apiBase)
	if parseErr != nil {
		return "", parseErr
	}
	prefix := strings.TrimSuffix(parsedURL.Path, "/")
	var plainPath strings.Builder
	var escapedPath strings.Builder
	plainPath.WriteString(prefix)
	escapedPath.WriteString(prefix)
	for _, segment := range segments {
		cleaned := strings.TrimSpace(segment)
		plainPath.WriteByte('/')
		plainPath.WriteString(cleaned)
		escapedPath.WriteByte('/')
		escapedPath.WriteString(url.PathEscape(cleaned))
	}
	parsedURL.Path = plainPath.String()
	parsedURL.RawPath = escapedPath.String()
	query := parsedURL.Query()
	query.Set(formatQueryKey, formatQueryJSON)
	parsedURL.RawQuery = query.Encode()
	return parsedURL.String(), nil
}

func snippet(body string) string {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) <= bodySnippetLimit {
		return trimmed
	}
	return trimmed[:bodySnippetLimit]
}
