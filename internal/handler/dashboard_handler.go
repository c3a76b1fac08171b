package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anasy333/krishisat-gateway/internal/middleware"
	"github.com/anasy333/krishisat-gateway/internal/upstream"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
	"github.com/anasy333/krishisat-gateway/pkg/response"
)

// DataFetcher is the slice of the upstream data client the dashboards use.
type DataFetcher interface {
	Get(ctx context.Context, credential, path string, query url.Values) (json.RawMessage, error)
	Download(ctx context.Context, credential, path string, query url.Values) ([]byte, string, error)
	Post(ctx context.Context, credential, path string, body []byte) (json.RawMessage, error)
}

// DashboardHandler passes dashboard data through from the remote analytics
// service. Payloads stay opaque end to end.
type DashboardHandler struct {
	data DataFetcher
	log  *logger.Logger
}

// NewDashboardHandler creates the dashboard handler.
func NewDashboardHandler(data DataFetcher) *DashboardHandler {
	return &DashboardHandler{
		data: data,
		log:  logger.Get().With(zap.String("component", "dashboard_handler")),
	}
}

// respondUpstream maps upstream failures onto responses. An expired
// credential is recorded on the context for the sweep middleware; nothing is
// written here.
func (h *DashboardHandler) respondUpstream(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upstream.ErrUnauthorized):
		c.Error(err)
	case errors.Is(err, upstream.ErrUnavailable):
		response.BadGateway(c, "Analytics service unavailable")
	default:
		response.InternalError(c, err)
	}
}

func (h *DashboardHandler) passthrough(c *gin.Context, path string) {
	s := middleware.SessionFrom(c)
	payload, err := h.data.Get(c.Request.Context(), s.Credential, path, c.Request.URL.Query())
	if err != nil {
		h.respondUpstream(c, err)
		return
	}
	response.Success(c, payload)
}

// panel names of the farmer dashboard
const (
	panelSoil    = "soil"
	panelWeather = "weather"
	panelYield   = "yield"
)

var panelPaths = map[string]string{
	panelSoil:    "/api/soil/",
	panelWeather: "/api/weather/",
	panelYield:   "/api/yield/",
}

// FarmerDashboard fetches the soil, weather and yield panels concurrently.
// Panels resolve in no guaranteed order and fail independently; only an
// expired credential aborts the whole dashboard.
// GET /api/dashboard/farmer
func (h *DashboardHandler) FarmerDashboard(c *gin.Context) {
	s := middleware.SessionFrom(c)
	ctx := c.Request.Context()
	query := c.Request.URL.Query()

	type panelResult struct {
		name    string
		payload json.RawMessage
		err     error
	}

	results := make(chan panelResult, len(panelPaths))
	var wg sync.WaitGroup
	for name, path := range panelPaths {
		wg.Add(1)
		go func(name, path string) {
			defer wg.Done()
			payload, err := h.data.Get(ctx, s.Credential, path, query)
			results <- panelResult{name: name, payload: payload, err: err}
		}(name, path)
	}
	wg.Wait()
	close(results)

	panels := make(map[string]json.RawMessage, len(panelPaths))
	panelErrors := make(map[string]string)
	for r := range results {
		if r.err != nil {
			if errors.Is(r.err, upstream.ErrUnauthorized) {
				c.Error(r.err)
				return
			}
			h.log.Warn("dashboard panel failed",
				zap.String("panel", r.name),
				zap.Error(r.err))
			panelErrors[r.name] = "unavailable"
			continue
		}
		panels[r.name] = r.payload
	}

	result := gin.H{"panels": panels}
	if len(panelErrors) > 0 {
		result["panel_errors"] = panelErrors
	}
	response.Success(c, result)
}

// Farms lists the user's farms
// GET /api/farms
func (h *DashboardHandler) Farms(c *gin.Context) {
	h.passthrough(c, "/api/farms/")
}

// CreateFarm registers a farm with its drawn boundary
// POST /api/farms
func (h *DashboardHandler) CreateFarm(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "unreadable request body")
		return
	}

	s := middleware.SessionFrom(c)
	payload, err := h.data.Post(c.Request.Context(), s.Credential, "/api/farms/", body)
	if err != nil {
		h.respondUpstream(c, err)
		return
	}
	response.Created(c, payload)
}

// FarmDetail returns one farm
// GET /api/farms/:id
func (h *DashboardHandler) FarmDetail(c *gin.Context) {
	h.passthrough(c, "/api/farms/"+c.Param("id")+"/")
}

// FarmMap returns the farm boundary as GeoJSON
// GET /api/farms/:id/map
func (h *DashboardHandler) FarmMap(c *gin.Context) {
	h.passthrough(c, "/api/farms/"+c.Param("id")+"/map/")
}

// AnalysisResults returns satellite analysis results
// GET /api/analysis/results
func (h *DashboardHandler) AnalysisResults(c *gin.Context) {
	h.passthrough(c, "/api/analysis/results/")
}

// CropDashboard returns the crop health dashboard
// GET /api/crops/dashboard
func (h *DashboardHandler) CropDashboard(c *gin.Context) {
	h.passthrough(c, "/api/crops/dashboard/")
}

// PDFReport streams the analysis report export
// GET /api/reports/pdf
func (h *DashboardHandler) PDFReport(c *gin.Context) {
	s := middleware.SessionFrom(c)
	body, contentType, err := h.data.Download(c.Request.Context(), s.Credential, "/api/reports/pdf/", c.Request.URL.Query())
	if err != nil {
		h.respondUpstream(c, err)
		return
	}
	if contentType == "" {
		contentType = "application/pdf"
	}
	c.Data(http.StatusOK, contentType, body)
}

// StaffOverview returns the staff operations dashboard
// GET /api/dashboard/staff
func (h *DashboardHandler) StaffOverview(c *gin.Context) {
	h.passthrough(c, "/api/staff/overview/")
}

// GovtOverview returns the government analytics dashboard
// GET /api/dashboard/govt
func (h *DashboardHandler) GovtOverview(c *gin.Context) {
	h.passthrough(c, "/api/govt/overview/")
}

// RegionalSummary returns aggregated regional statistics
// GET /api/regional/summary
func (h *DashboardHandler) RegionalSummary(c *gin.Context) {
	h.passthrough(c, "/api/regional/summary/")
}
