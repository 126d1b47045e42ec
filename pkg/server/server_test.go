package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devparekh/tickertrust/internal/store"
	"github.com/devparekh/tickertrust/pkg/feature"
	"github.com/devparekh/tickertrust/pkg/trust"
)

const (
	testToken    = "internal-test-token"
	testAdminKey = "admin-test-key"
)

type mockStore struct {
	mu          sync.Mutex
	latest      map[string]*trust.Result
	saved       []trust.Result
	credibility map[string]float64
}

func newMockStore() *mockStore {
	return &mockStore{
		latest:      map[string]*trust.Result{},
		credibility: map[string]float64{},
	}
}

func (m *mockStore) UpsertNewsItems(context.Context, string, []feature.Article) error { return nil }

func (m *mockStore) RecentNewsHashes(context.Context, string) (map[string]bool, error) {
	return nil, nil
}

func (m *mockStore) SourceCredibility(context.Context) (map[string]float64, error) {
	return m.credibility, nil
}

func (m *mockStore) SetSourceCredibility(_ context.Context, domain string, weight float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credibility[domain] = weight
	return nil
}

func (m *mockStore) UpsertSocialPosts(context.Context, string, []feature.Post) error { return nil }

func (m *mockStore) SaveSocialSnapshot(context.Context, string, string, feature.SocialFeatures) error {
	return nil
}

func (m *mockStore) LatestSocialSnapshot(context.Context, string) (*store.SocialSnapshot, error) {
	return nil, nil
}

func (m *mockStore) SaveTrustScore(_ context.Context, result trust.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, result)
	return nil
}

func (m *mockStore) LatestTrustScore(_ context.Context, symbol string) (*trust.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest[symbol], nil
}

func (m *mockStore) Close() error { return nil }

type mockJobs struct {
	mu         sync.Mutex
	ingests    int
	recomputes int
}

func (j *mockJobs) IngestAll(context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ingests++
}

func (j *mockJobs) RecomputeAll(context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recomputes++
}

func testServer(t *testing.T) (*Server, *mockStore, *mockJobs) {
	t.Helper()
	s := newMockStore()
	jobs := &mockJobs{}
	engine := trust.NewEngine(nil, nil, nil, trust.Options{
		Now: func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
	})
	srv := New(s, engine, jobs, nil, zerolog.Nop(), 8080, testToken, testAdminKey)
	return srv, s, jobs
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func authed() map[string]string {
	return map[string]string{"X-Internal-Token": testToken}
}

func adminAuthed() map[string]string {
	return map[string]string{"X-Internal-Token": testToken, "X-Admin-Key": testAdminKey}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("x-response-time-ms"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "tickertrust", body["service"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrustScoreRequiresToken(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/v1/trust-score/RELIANCE.NS", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/v1/trust-score/RELIANCE.NS", "",
		map[string]string{"X-Internal-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTrustScoreComputesAndPersists(t *testing.T) {
	srv, s, _ := testServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/v1/trust-score/reliance.ns", "", authed())

	require.Equal(t, http.StatusOK, rec.Code)
	var result trust.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "RELIANCE.NS", result.Symbol, "symbol is normalized to upper case")
	assert.Equal(t, "2026-03-10", result.AsOfDate)
	assert.True(t, result.StaleData)
	assert.Len(t, result.Disclaimers, 4)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.saved, 1)
	assert.Equal(t, result.TrustScore, s.saved[0].TrustScore)
}

func TestTrustScoreUsesStoredPrior(t *testing.T) {
	srv, s, _ := testServer(t)
	prior := 58.0
	s.latest["TCS.NS"] = &trust.Result{Symbol: "TCS.NS", TrustScore: prior}

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/v1/trust-score/TCS.NS", "", authed())
	require.Equal(t, http.StatusOK, rec.Code)

	var result trust.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result.Explanations[len(result.Explanations)-1], "58.0")
}

func TestSocialSnapshot(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/v1/social/itc.ns", "", authed())

	require.Equal(t, http.StatusOK, rec.Code)
	var body socialSnapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ITC.NS", body.Symbol)
	assert.True(t, body.StaleData, "no social fetcher configured")
	assert.InDelta(t, 100-body.BullishPct, body.BearishPct, 0.01)
}

func TestQuizScore(t *testing.T) {
	srv, _, _ := testServer(t)
	payload := `{"answers":[
		{"section":"emotional","value":80},
		{"section":"financial","value":60},
		{"section":"behavioral","value":40}
	]}`
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/v1/quiz/score", payload, authed())

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TIGER", body["persona"])

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/v1/quiz/score", "{not json", authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioGenerate(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/v1/portfolio/generate",
		`{"riskPersona":"OWL","amount":50000,"horizonMonths":24}`, authed())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OWL", body["riskPersona"])
	assert.NotEmpty(t, body["allocations"])

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/v1/portfolio/generate",
		`{"riskPersona":"SHARK","amount":50000,"horizonMonths":24}`, authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/v1/portfolio/generate",
		`{"riskPersona":"OWL","amount":0,"horizonMonths":24}`, authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSIPGenerate(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/v1/sip/generate",
		`{"monthlyBudget":5000,"riskPersona":"TIGER","horizonMonths":36}`, authed())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TIGER", body["riskPersona"])
	assert.Len(t, body["rebalanceTriggers"], 3)
}

func TestAdminRecomputeRequiresBothKeys(t *testing.T) {
	srv, _, jobs := testServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/recompute", "", authed())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/recompute", "",
		map[string]string{"X-Internal-Token": testToken, "X-Admin-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/recompute", "", adminAuthed())
	require.Equal(t, http.StatusOK, rec.Code)

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	assert.Equal(t, 1, jobs.ingests)
	assert.Equal(t, 1, jobs.recomputes)
}

func TestAdminCredibility(t *testing.T) {
	srv, s, _ := testServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodPut, "/v1/admin/credibility",
		`{"domain":"Example.com","weight":0.75}`, adminAuthed())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.75, s.credibility["example.com"])

	rec = doRequest(t, srv.Handler(), http.MethodPut, "/v1/admin/credibility",
		`{"domain":"example.com","weight":1.5}`, adminAuthed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPut, "/v1/admin/credibility",
		`{"weight":0.5}`, adminAuthed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
