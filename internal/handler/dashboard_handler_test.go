package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/anasy333/krishisat-gateway/internal/audit"
	"github.com/anasy333/krishisat-gateway/internal/domain"
	"github.com/anasy333/krishisat-gateway/internal/middleware"
	"github.com/anasy333/krishisat-gateway/internal/session"
	"github.com/anasy333/krishisat-gateway/internal/upstream"
)

// fakeDataClient serves canned payloads per path.
type fakeDataClient struct {
	mu       sync.Mutex
	payloads map[string]json.RawMessage
	errs     map[string]error
	queries  map[string]url.Values
}

func newFakeDataClient() *fakeDataClient {
	return &fakeDataClient{
		payloads: make(map[string]json.RawMessage),
		errs:     make(map[string]error),
		queries:  make(map[string]url.Values),
	}
}

func (f *fakeDataClient) Get(ctx context.Context, credential, path string, query url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[path] = query
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	if payload, ok := f.payloads[path]; ok {
		return payload, nil
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeDataClient) Download(ctx context.Context, credential, path string, query url.Values) ([]byte, string, error) {
	if err, ok := f.errs[path]; ok {
		return nil, "", err
	}
	return []byte("%PDF-1.4"), "application/pdf", nil
}

func (f *fakeDataClient) Post(ctx context.Context, credential, path string, body []byte) (json.RawMessage, error) {
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	return json.RawMessage(`{"id":"farm-1"}`), nil
}

type dashFixture struct {
	router *gin.Engine
	store  *session.Store
	data   *fakeDataClient
}

func newDashFixture() *dashFixture {
	store := session.NewStore(session.NewMemoryBox(), time.Hour)
	data := newFakeDataClient()
	h := NewDashboardHandler(data)

	r := gin.New()
	r.Use(middleware.SessionMiddleware(store, testCookie, false))
	r.Use(middleware.UnauthorizedSweep(store, audit.NopPublisher{}, testCookie, false))
	r.GET("/api/dashboard/farmer", h.FarmerDashboard)
	r.GET("/api/farms", h.Farms)
	r.GET("/api/analysis/results", h.AnalysisResults)
	r.GET("/api/reports/pdf", h.PDFReport)

	return &dashFixture{router: r, store: store, data: data}
}

func (f *dashFixture) login(t *testing.T, sid string) {
	t.Helper()
	err := f.store.Login(context.Background(), sid, "tok", &domain.Identity{
		ID: "u1", Role: domain.RoleFarmer,
	})
	assert.NoError(t, err)
}

func (f *dashFixture) get(path, sid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Accept", "application/json")
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: sid})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestDashboardHandler_FarmerDashboard(t *testing.T) {
	t.Run("all panels assembled", func(t *testing.T) {
		f := newDashFixture()
		f.login(t, "sid-1")
		f.data.payloads["/api/soil/"] = json.RawMessage(`{"moisture":0.31}`)
		f.data.payloads["/api/weather/"] = json.RawMessage(`{"temp_c":29}`)
		f.data.payloads["/api/yield/"] = json.RawMessage(`{"forecast_t":4.2}`)

		w := f.get("/api/dashboard/farmer?farm_id=42", "sid-1")
		assert.Equal(t, http.StatusOK, w.Code)

		body := w.Body.String()
		assert.Contains(t, body, `"moisture":0.31`)
		assert.Contains(t, body, `"temp_c":29`)
		assert.Contains(t, body, `"forecast_t":4.2`)

		// Query forwarded to every panel
		for _, path := range []string{"/api/soil/", "/api/weather/", "/api/yield/"} {
			assert.Equal(t, "42", f.data.queries[path].Get("farm_id"), path)
		}
	})

	t.Run("one failing panel is isolated", func(t *testing.T) {
		f := newDashFixture()
		f.login(t, "sid-2")
		f.data.payloads["/api/soil/"] = json.RawMessage(`{"moisture":0.31}`)
		f.data.errs["/api/weather/"] = upstream.ErrUnavailable

		w := f.get("/api/dashboard/farmer", "sid-2")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"moisture":0.31`)
		assert.Contains(t, w.Body.String(), `"weather":"unavailable"`)
	})

	t.Run("expired credential clears session via sweep", func(t *testing.T) {
		f := newDashFixture()
		f.login(t, "sid-3")
		f.data.errs["/api/soil/"] = upstream.ErrUnauthorized

		w := f.get("/api/dashboard/farmer", "sid-3")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "SESSION_EXPIRED")

		s := f.store.Resolve(context.Background(), "sid-3")
		assert.Equal(t, domain.StatusAnonymous, s.Status)
	})
}

func TestDashboardHandler_Passthrough(t *testing.T) {
	t.Run("payload forwarded untouched", func(t *testing.T) {
		f := newDashFixture()
		f.login(t, "sid-4")
		f.data.payloads["/api/farms/"] = json.RawMessage(`[{"id":"farm-1","name":"North plot"}]`)

		w := f.get("/api/farms", "sid-4")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"North plot"`)
	})

	t.Run("upstream outage maps to 502", func(t *testing.T) {
		f := newDashFixture()
		f.login(t, "sid-5")
		f.data.errs["/api/analysis/results/"] = upstream.ErrUnavailable

		w := f.get("/api/analysis/results", "sid-5")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestDashboardHandler_PDFReport(t *testing.T) {
	f := newDashFixture()
	f.login(t, "sid-6")

	w := f.get("/api/reports/pdf", "sid-6")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}
