package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache is an in-process ResponseCache for client tests.
type memoryCache struct {
	mu      sync.Mutex
	entries []*models.CacheEntry
}

func (m *memoryCache) Lookup(_ context.Context, requestType, requestHash string, ttl time.Duration) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.RequestType == requestType && e.RequestHash == requestHash && time.Since(e.CreatedAt) <= ttl {
			return e, nil
		}
	}
	return nil, nil
}

func (m *memoryCache) Store(_ context.Context, entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryCache) Purge(_ context.Context, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if time.Since(e.CreatedAt) <= ttl {
			kept = append(kept, e)
		}
	}
	n := int64(len(m.entries) - len(kept))
	m.entries = kept
	return n, nil
}

func (m *memoryCache) Clear(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.entries))
	m.entries = nil
	return n, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const questionsBody = `{"success":true,"data":{"questions":[
	{"type":"multiple_choice","question":"What is 2+2?","options":["3","4","5"],"correct_answer":1,"explanation":"basic"},
	{"type":"true_false","text":"The sky is blue","correct_answer":"true"}
]}}`

func newTestClient(t *testing.T, handler http.HandlerFunc, cacheEnabled bool) (*Client, *memoryCache, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	transport, err := NewHTTPTransport(srv.URL, "secret-token", 5*time.Second)
	require.NoError(t, err)

	mc := &memoryCache{}
	client, err := NewClient(transport, mc, Options{CacheEnabled: cacheEnabled, CacheTTL: time.Hour}, testLogger())
	require.NoError(t, err)
	return client, mc, &calls
}

func TestClient_CacheHitAvoidsSecondCall(t *testing.T) {
	client, _, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPost, r.Method)

		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, ActionGenerateQuestions, payload["action"])

		_, _ = w.Write([]byte(questionsBody))
	}, true)
	ctx := context.Background()

	first, err := client.GenerateQuestions(ctx, "Write an essay", 2, nil)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Len(t, first.Questions, 2)

	second, err := client.GenerateQuestions(ctx, "Write an essay", 2, nil)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Questions, second.Questions)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	// any payload difference is a miss
	_, err = client.GenerateQuestions(ctx, "Write an essay", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestClient_CacheDisabledAlwaysCalls(t *testing.T) {
	client, mc, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"is_clear":true,"feedback":"fine"}}`))
	}, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		check, err := client.CheckInstructions(ctx, "Explain recursion")
		require.NoError(t, err)
		assert.True(t, check.IsClear)
		assert.False(t, check.FromCache)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Empty(t, mc.entries)

	client.SetCacheEnabled(true)
	_, err := client.CheckInstructions(ctx, "Explain recursion")
	require.NoError(t, err)
	check, err := client.CheckInstructions(ctx, "Explain recursion")
	require.NoError(t, err)
	assert.True(t, check.FromCache)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestClient_FailuresAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	client, mc, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			_, _ = w.Write([]byte(`{"success":false,"error":"Instructions too short"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"is_clear":false,"feedback":"add detail"}}`))
	}, true)
	ctx := context.Background()

	_, err := client.CheckInstructions(ctx, "x")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindUpstream))
	assert.Equal(t, "Instructions too short", err.Error())
	assert.Empty(t, mc.entries)

	fail.Store(false)
	check, err := client.CheckInstructions(ctx, "x")
	require.NoError(t, err)
	assert.False(t, check.FromCache)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Len(t, mc.entries, 1)

	n, err := client.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClient_UndecodableSuccessIsNotCached(t *testing.T) {
	var withQuestions atomic.Bool
	client, mc, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if withQuestions.Load() {
			_, _ = w.Write([]byte(questionsBody))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"summary":"no questions here"}}`))
	}, true)
	ctx := context.Background()

	_, err := client.AnalyzeSubmission(ctx, "essay", 2, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindMissingField))
	assert.Empty(t, mc.entries)

	// the retry reaches the gateway instead of replaying the bad envelope
	withQuestions.Store(true)
	set, err := client.AnalyzeSubmission(ctx, "essay", 2, nil)
	require.NoError(t, err)
	assert.False(t, set.FromCache)
	assert.Len(t, set.Questions, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Len(t, mc.entries, 1)
}

func TestClient_UnusableCachedEntryIsAMiss(t *testing.T) {
	client, mc, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(questionsBody))
	}, true)
	ctx := context.Background()

	_, err := client.GenerateQuestions(ctx, "Write an essay", 2, nil)
	require.NoError(t, err)
	require.Len(t, mc.entries, 1)
	mc.entries[0].ParsedResponse = []byte(`{"questions":[{"type":"essay"}]}`)

	set, err := client.GenerateQuestions(ctx, "Write an essay", 2, nil)
	require.NoError(t, err)
	assert.False(t, set.FromCache)
	assert.Len(t, set.Questions, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestSnippet_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", snippet([]byte("  short \n")))

	// 199 ASCII bytes put a two-byte rune across the 200 byte cut
	body := strings.Repeat("a", 199) + strings.Repeat("é", 10)
	got := snippet([]byte(body))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 199)+"...", got)

	body = strings.Repeat("a", 200) + "é"
	assert.Equal(t, strings.Repeat("a", 200)+"...", snippet([]byte(body)))

	body = strings.Repeat("日本語", 100)
	got = snippet([]byte(body))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("日本語", 22)+"...", got)
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrKindAuth},
		{"not found", http.StatusNotFound, `{}`, ErrKindNotFound},
		{"server error", http.StatusInternalServerError, `boom`, ErrKindHTTPStatus},
		{"malformed json", http.StatusOK, `not json`, ErrKindMalformed},
		{"missing success", http.StatusOK, `{"data":{}}`, ErrKindMissingField},
		{"missing data", http.StatusOK, `{"success":true}`, ErrKindMissingField},
		{"upstream failure", http.StatusOK, `{"success":false,"error":"quota exceeded"}`, ErrKindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mc, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, true)

			_, err := client.CheckInstructions(context.Background(), "instructions")
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
			assert.Empty(t, mc.entries)
		})
	}
}

func TestClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	transport, err := NewHTTPTransport(url, "token", time.Second)
	require.NoError(t, err)
	client, err := NewClient(transport, nil, Options{}, testLogger())
	require.NoError(t, err)

	_, err = client.CheckInstructions(context.Background(), "instructions")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindConnection))
}

func TestNewHTTPTransport_ConfigErrors(t *testing.T) {
	_, err := NewHTTPTransport("", "token", 0)
	assert.True(t, IsKind(err, ErrKindConfig))

	_, err = NewHTTPTransport("http://gateway", " ", 0)
	assert.True(t, IsKind(err, ErrKindConfig))

	_, err = NewClient(nil, nil, Options{}, testLogger())
	assert.True(t, IsKind(err, ErrKindConfig))
}

func TestUnavailableTransport_ReportsConfigError(t *testing.T) {
	_, cause := NewHTTPTransport("", "token", 0)
	client, err := NewClient(NewUnavailableTransport(cause), nil, Options{}, testLogger())
	require.NoError(t, err)

	_, err = client.GenerateQuestions(context.Background(), "instructions", 3, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindConfig))
	assert.Contains(t, err.Error(), "gateway endpoint is not configured")
}

func TestRequestHash_IsOrderIndependent(t *testing.T) {
	a, _ := json.Marshal(map[string]interface{}{"action": "x", "count": 1, "b": "y"})
	b, _ := json.Marshal(map[string]interface{}{"b": "y", "count": 1, "action": "x"})
	assert.Equal(t, RequestHash(a), RequestHash(b))
	assert.Len(t, RequestHash(a), 64)
}
