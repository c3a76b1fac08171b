package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/anasy333/krishisat-gateway/pkg/response"
)

// ContentHandler serves the public marketing payloads. These back the
// landing pages and are never guarded.
type ContentHandler struct{}

// NewContentHandler creates the content handler.
func NewContentHandler() *ContentHandler {
	return &ContentHandler{}
}

// Landing returns the home page content
// GET /api/content/landing
func (h *ContentHandler) Landing(c *gin.Context) {
	response.Success(c, gin.H{
		"headline":    "Satellite intelligence for every farm",
		"subheadline": "Monitor crop health, soil moisture and yield forecasts from space",
		"features": []gin.H{
			{"title": "Crop Health Monitoring", "description": "NDVI-based vegetation health tracking updated with every satellite pass"},
			{"title": "Soil & Weather Insights", "description": "Field-level soil moisture and hyperlocal weather conditions"},
			{"title": "Yield Forecasting", "description": "Season-ahead yield estimates built from historical satellite imagery"},
			{"title": "Government Dashboards", "description": "Regional aggregates for policy planning and subsidy targeting"},
		},
	})
}

// Testimonials returns customer stories
// GET /api/content/testimonials
func (h *ContentHandler) Testimonials(c *gin.Context) {
	response.Success(c, []gin.H{
		{"name": "Ramesh Kulkarni", "location": "Nashik, Maharashtra", "quote": "The soil moisture alerts helped me cut irrigation costs by a third."},
		{"name": "Sunita Devi", "location": "Patna, Bihar", "quote": "I spotted a pest outbreak a week before it was visible from the ground."},
		{"name": "District Agriculture Office", "location": "Amravati", "quote": "Regional dashboards changed how we plan relief for drought-hit blocks."},
	})
}

// FAQs returns frequently asked questions
// GET /api/content/faqs
func (h *ContentHandler) FAQs(c *gin.Context) {
	response.Success(c, []gin.H{
		{"question": "How often is satellite data updated?", "answer": "Most fields are revisited every 5 days, weather permitting."},
		{"question": "Do I need special equipment?", "answer": "No. A phone number is enough to register and draw your farm boundary."},
		{"question": "Which crops are supported?", "answer": "All major cereals, pulses, oilseeds and horticultural crops."},
		{"question": "Is my farm data shared?", "answer": "Individual farm data is never shared; government dashboards only see anonymized regional aggregates."},
	})
}

// Careers returns open positions
// GET /api/content/careers
func (h *ContentHandler) Careers(c *gin.Context) {
	response.Success(c, []gin.H{
		{"title": "Remote Sensing Scientist", "location": "Bengaluru", "type": "full-time"},
		{"title": "Field Operations Associate", "location": "Nagpur", "type": "full-time"},
		{"title": "Backend Engineer", "location": "Remote (India)", "type": "full-time"},
	})
}
