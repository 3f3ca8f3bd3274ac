// Package ebisearchtest provides an in-process fake of the EBI Search cross-reference endpoints.
package ebisearchtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/temirov/ebixref/internal/ebisearch"
)

const (
	xrefSegment  = "xref"
	entrySegment = "entry"
)

type rawBody struct {
	contentType string
	body        string
}

// Server is a fake catalog with per-path hit counters.
type Server struct {
	*httptest.Server

	mutex          sync.Mutex
	domains        map[string][]string
	references     map[string]map[string]map[string][]string
	discoveryFails map[string]int
	targetFails    map[string]int
	targetBodies   map[string]rawBody
	targetDelays   map[string]time.Duration
	entryDelay     time.Duration
	discoveryHits  map[string]int
	entryHits      map[string]int
	inFlight       int
	maxInFlight    int
}

// NewServer starts a fake catalog that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	server := &Server{
		domains:        map[string][]string{},
		references:     map[string]map[string]map[string][]string{},
		discoveryFails: map[string]int{},
		targetFails:    map[string]int{},
		targetBodies:   map[string]rawBody{},
		targetDelays:   map[string]time.Duration{},
		discoveryHits:  map[string]int{},
		entryHits:      map[string]int{},
	}
	server.Server = httptest.NewServer(http.HandlerFunc(server.handle))
	t.Cleanup(server.Close)
	return server
}

// Client returns an ebisearch client pointed at the fake.
func (server *Server) Client() ebisearch.Client {
	return ebisearch.NewClient(server.Server.Client()).WithAPIBase(server.URL)
}

// SetDomains registers the discoverable targets of source.
func (server *Server) SetDomains(source string, targets ...string) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.domains[source] = append([]string{}, targets...)
}

// SetReferences registers the references of one source entry into target.
func (server *Server) SetReferences(source, target, entryID string, identifiers ...string) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	byTarget, ok := server.references[source]
	if !ok {
		byTarget = map[string]map[string][]string{}
		server.references[source] = byTarget
	}
	byEntry, ok := byTarget[target]
	if !ok {
		byEntry = map[string][]string{}
		byTarget[target] = byEntry
	}
	byEntry[entryID] = append([]string{}, identifiers...)
}

// FailDiscovery makes discovery of source respond with status.
func (server *Server) FailDiscovery(source string, status int) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.discoveryFails[source] = status
}

// FailTarget makes targeted requests from source into target respond with status.
func (server *Server) FailTarget(source, target string, status int) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.targetFails[source+"/"+target] = status
}

// SetTargetBody makes targeted requests from source into target answer 200 with body as is.
func (server *Server) SetTargetBody(source, target, contentType, body string) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.targetBodies[source+"/"+target] = rawBody{contentType: contentType, body: body}
}

// SetTargetDelay delays targeted responses from source into target.
func (server *Server) SetTargetDelay(source, target string, delay time.Duration) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.targetDelays[source+"/"+target] = delay
}

// SetEntryDelay delays every targeted response.
func (server *Server) SetEntryDelay(delay time.Duration) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.entryDelay = delay
}

// DiscoveryHits reports how many discovery requests reached source.
func (server *Server) DiscoveryHits(source string) int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return server.discoveryHits[source]
}

// EntryHits reports how many targeted requests went from source into target.
func (server *Server) EntryHits(source, target string) int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return server.entryHits[source+"/"+target]
}

// TotalEntryHits reports every targeted request received.
func (server *Server) TotalEntryHits() int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	total := 0
	for _, hits := range server.entryHits {
		total += hits
	}
	return total
}

// MaxInFlight reports the peak number of concurrent targeted requests.
func (server *Server) MaxInFlight() int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return server.maxInFlight
}

func (server *Server) handle(writer http.ResponseWriter, request *http.Request) {
	segments := strings.Split(strings.Trim(request.URL.Path, "/"), "/")
	switch {
	case len(segments) == 2 && segments[1] == xrefSegment:
		server.handleDiscovery(writer, segments[0])
	case len(segments) == 5 && segments[1] == entrySegment && segments[3] == xrefSegment:
		server.handleEntries(writer, request, segments[0], strings.Split(segments[2], ","), segments[4])
	default:
		http.NotFound(writer, request)
	}
}

func (server *Server) handleDiscovery(writer http.ResponseWriter, source string) {
	server.mutex.Lock()
	server.discoveryHits[source]++
	status, failing := server.discoveryFails[source]
	targets, known := server.domains[source]
	server.mutex.Unlock()

	if failing {
		http.Error(writer, "discovery unavailable", status)
		return
	}
	if !known {
		http.Error(writer, "unknown domain", http.StatusNotFound)
		return
	}
	type descriptor struct {
		ID string `json:"id"`
	}
	descriptors := make([]descriptor, 0, len(targets))
	for _, target := range targets {
		descriptors = append(descriptors, descriptor{ID: target})
	}
	writeJSON(writer, map[string]interface{}{"domains": descriptors})
}

func (server *Server) handleEntries(writer http.ResponseWriter, request *http.Request, source string, entryIDs []string, target string) {
	key := source + "/" + target
	server.mutex.Lock()
	server.entryHits[key]++
	server.inFlight++
	if server.inFlight > server.maxInFlight {
		server.maxInFlight = server.inFlight
	}
	status, failing := server.targetFails[key]
	delay := server.entryDelay
	if targetDelay, delayed := server.targetDelays[key]; delayed {
		delay = targetDelay
	}
	raw, overridden := server.targetBodies[key]
	byEntry := server.references[source][target]
	server.mutex.Unlock()

	defer func() {
		server.mutex.Lock()
		server.inFlight--
		server.mutex.Unlock()
	}()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-request.Context().Done():
			return
		}
	}
	if failing {
		http.Error(writer, "targeted lookup unavailable", status)
		return
	}
	if overridden {
		writer.Header().Set("Content-Type", raw.contentType)
		_, _ = writer.Write([]byte(raw.body))
		return
	}
	type reference struct {
		ID     string `json:"id"`
		Source string `json:"source"`
	}
	type entry struct {
		ID         string      `json:"id"`
		Source     string      `json:"source"`
		References []reference `json:"references"`
	}
	entries := make([]entry, 0, len(entryIDs))
	for _, entryID := range entryIDs {
		references := []reference{}
		for _, identifier := range byEntry[entryID] {
			references = append(references, reference{ID: identifier, Source: target})
		}
		entries = append(entries, entry{ID: entryID, Source: source, References: references})
	}
	writeJSON(writer, map[string]interface{}{"entries": entries})
}

func writeJSON(writer http.ResponseWriter, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(payload)
}
