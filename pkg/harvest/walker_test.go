package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"valavatar/pkg/chains"
	apperrors "valavatar/pkg/errors"
	"valavatar/pkg/httpclient"
	"valavatar/pkg/logger"
)

// lcdServer serves a scripted sequence of validator pages and records queries
type lcdServer struct {
	*httptest.Server

	mu      sync.Mutex
	queries []url.Values
	pages   []string
	status  map[int]int
}

func newLCDServer(t *testing.T, pages ...string) *lcdServer {
	t.Helper()
	s := &lcdServer{pages: pages, status: map[int]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != validatorsPath {
			http.NotFound(w, r)
			return
		}

		s.mu.Lock()
		s.queries = append(s.queries, r.URL.Query())
		n := len(s.queries)
		s.mu.Unlock()

		if code, ok := s.status[n]; ok {
			w.WriteHeader(code)
			return
		}
		if n > len(s.pages) {
			t.Errorf("unexpected request %d: %s", n, r.URL.RawQuery)
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, s.pages[n-1])
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *lcdServer) requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.queries...)
}

// page renders a validators page with the given identities and next_key;
// a nil next key renders as JSON null
func page(nextKey *string, identities ...string) string {
	type description struct {
		Identity string `json:"identity"`
	}
	type validator struct {
		Description description `json:"description"`
	}
	body := struct {
		Validators []validator `json:"validators"`
		Pagination struct {
			NextKey *string `json:"next_key"`
			Total   string  `json:"total"`
		} `json:"pagination"`
	}{Validators: []validator{}}
	for _, id := range identities {
		body.Validators = append(body.Validators, validator{Description: description{Identity: id}})
	}
	body.Pagination.NextKey = nextKey
	body.Pagination.Total = "0"

	out, _ := json.Marshal(body)
	return string(out)
}

func key(s string) *string { return &s }

func newTestWalker(pageSize, maxPages int, log logger.Logger) *Walker {
	return NewWalker(httpclient.New(5*time.Second, nil), pageSize, maxPages, log)
}

func TestWalkCursorTerminates(t *testing.T) {
	server := newLCDServer(t,
		page(key("a"), "A1", "A2"),
		page(key("b/+="), "B1"),
		page(nil, "C1"),
	)

	w := newTestWalker(100, 0, nil)
	res := w.Walk(context.Background(), chains.Endpoint{ChainID: "test-1", LCD: server.URL + "/"})

	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{"A1", "A2", "B1", "C1"}, res.Identities)

	reqs := server.requests()
	require.Len(t, reqs, 3)

	assert.Equal(t, "100", reqs[0].Get("pagination.limit"))
	assert.False(t, reqs[0].Has("pagination.key"))
	assert.False(t, reqs[0].Has("pagination.offset"))

	assert.Equal(t, "a", reqs[1].Get("pagination.key"))
	// opaque cursor survives the round trip unchanged
	assert.Equal(t, "b/+=", reqs[2].Get("pagination.key"))
}

func TestWalkStopsOnEmptyOrMissingNextKey(t *testing.T) {
	tests := []struct {
		name string
		last string
	}{
		{"empty string", page(key(""), "Z")},
		{"null", page(nil, "Z")},
		{"no pagination object", `{"validators":[{"description":{"identity":"Z"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newLCDServer(t, page(key("next"), "Y"), tt.last)

			res := newTestWalker(10, 0, nil).Walk(context.Background(), chains.Endpoint{ChainID: "c", LCD: server.URL})

			require.NoError(t, res.Err)
			assert.Len(t, server.requests(), 2)
			assert.Equal(t, []string{"Y", "Z"}, res.Identities)
		})
	}
}

func TestWalkOffsetDialect(t *testing.T) {
	// the server's next_key is only a continue signal for offset endpoints
	server := newLCDServer(t,
		page(key("ignored-1"), "A"),
		page(key("ignored-2"), "B"),
		page(key(""), "C"),
	)

	res := newTestWalker(100, 0, nil).Walk(context.Background(), chains.Endpoint{
		ChainID: "osmosis-1",
		LCD:     server.URL,
		Dialect: chains.DialectOffset,
	})

	require.NoError(t, res.Err)
	reqs := server.requests()
	require.Len(t, reqs, 3)
	for i, q := range reqs {
		assert.Equal(t, fmt.Sprint(i*100), q.Get("pagination.offset"), "request %d", i+1)
		assert.Equal(t, "100", q.Get("pagination.limit"))
		assert.False(t, q.Has("pagination.key"))
	}
}

func TestWalkKeepsBlankIdentitiesOutOfTheSet(t *testing.T) {
	server := newLCDServer(t, page(nil, "", "X", "  "))

	res := newTestWalker(100, 0, nil).Walk(context.Background(), chains.Endpoint{ChainID: "c", LCD: server.URL})
	require.NoError(t, res.Err)

	set := NewIdentitySet()
	set.Add(res.Identities...)
	assert.Equal(t, []string{"X"}, set.Freeze())
}

func TestWalkSkipsPageWithoutValidators(t *testing.T) {
	server := newLCDServer(t,
		`{"pagination":{"next_key":"k2"}}`,
		`{"validators":{"oops":true},"pagination":{"next_key":"k3"}}`,
		page(nil, "LAST"),
	)
	log := logger.NewTestLogger()

	res := newTestWalker(100, 0, log).Walk(context.Background(), chains.Endpoint{ChainID: "c", LCD: server.URL})

	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{"LAST"}, res.Identities)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)

	reqs := server.requests()
	assert.Equal(t, "k2", reqs[1].Get("pagination.key"))
	assert.Equal(t, "k3", reqs[2].Get("pagination.key"))
}

func TestWalkAbortsOnFailedPage(t *testing.T) {
	tests := []struct {
		name string
		kind apperrors.Kind
		prep func(s *lcdServer)
	}{
		{
			name: "server error",
			kind: apperrors.KindStatus,
			prep: func(s *lcdServer) { s.status[2] = http.StatusInternalServerError },
		},
		{
			name: "non json body",
			kind: apperrors.KindParsing,
			prep: func(s *lcdServer) { s.pages[1] = "<html>rate limited</html>" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newLCDServer(t, page(key("k"), "KEEP"), page(key("k2"), "NEVER"), page(nil, "NEVER"))
			tt.prep(server)

			res := newTestWalker(100, 0, nil).Walk(context.Background(), chains.Endpoint{ChainID: "c", LCD: server.URL})

			require.Error(t, res.Err)
			assert.True(t, apperrors.IsKind(res.Err, tt.kind))
			assert.Equal(t, []string{"KEEP"}, res.Identities)
			assert.Len(t, server.requests(), 2)
		})
	}
}

func TestWalkMaxPages(t *testing.T) {
	server := newLCDServer(t, page(key("1"), "A"), page(key("2"), "B"))

	res := newTestWalker(100, 2, nil).Walk(context.Background(), chains.Endpoint{ChainID: "c", LCD: server.URL})

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, server.requests(), 2)
}

func TestWalkCancelledContext(t *testing.T) {
	server := newLCDServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestWalker(100, 0, nil).Walk(ctx, chains.Endpoint{ChainID: "c", LCD: server.URL})

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, server.requests())
}

func TestNewWalkerDefaultPageSize(t *testing.T) {
	w := NewWalker(nil, 0, 0, nil)
	assert.Equal(t, DefaultPageSize, w.pageSize)
}
