package handlers

import (
	"github.com/gin-gonic/gin"

	"docnum/internal/core/apperror"
	"docnum/internal/core/numerator"
	"docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/http/v1/dto"
)

// NumberingHandler exposes pattern settings and number generation.
type NumberingHandler struct {
	*BaseHandler
	service *numbering.Service
}

// NewNumberingHandler creates a numbering handler.
func NewNumberingHandler(base *BaseHandler, service *numbering.Service) *NumberingHandler {
	return &NumberingHandler{BaseHandler: base, service: service}
}

// RouteGuards are extra middleware for individual endpoints.
type RouteGuards struct {
	SavePattern []gin.HandlerFunc
	Next        []gin.HandlerFunc
}

// RegisterRoutes mounts the handler under rg.
func (h *NumberingHandler) RegisterRoutes(rg *gin.RouterGroup, guards RouteGuards) {
	rg.POST("/validate", h.Validate)
	rg.GET("/counters", h.Counters)

	doc := rg.Group("/:docType")
	doc.GET("/pattern", h.GetPattern)
	doc.PUT("/pattern", append(guards.SavePattern, h.SavePattern)...)
	doc.POST("/preview", h.Preview)
	doc.POST("/next", append(guards.Next, h.Next)...)
}

func (h *NumberingHandler) docType(c *gin.Context) (numerator.DocType, bool) {
	raw := c.Param("docType")
	dt, err := numerator.ParseDocType(raw)
	if err != nil {
		h.Error(c, apperror.NewUnknownDocType(raw))
		return "", false
	}
	return dt, true
}

// Validate checks a pattern without saving it. Always 200; the body carries the verdict.
// POST /api/v1/numbering/validate
func (h *NumberingHandler) Validate(c *gin.Context) {
	var req dto.ValidatePatternRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.OK(c, dto.FromValidationResult(h.service.Validate(req.Pattern)))
}

// GetPattern returns the pattern in use.
// GET /api/v1/numbering/:docType/pattern
func (h *NumberingHandler) GetPattern(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}

	pattern, isDefault, err := h.service.Pattern(c.Request.Context(), h.AccountID(c), dt)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.PatternResponse{DocumentType: string(dt), Pattern: pattern, IsDefault: isDefault})
}

// SavePattern stores a new pattern; invalid patterns are rejected with 422.
// PUT /api/v1/numbering/:docType/pattern
func (h *NumberingHandler) SavePattern(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	var req dto.SavePatternRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SavePattern(c.Request.Context(), h.AccountID(c), dt, req.Pattern); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.PatternResponse{DocumentType: string(dt), Pattern: req.Pattern})
}

// Preview shows the next number without consuming it.
// POST /api/v1/numbering/:docType/preview
func (h *NumberingHandler) Preview(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	var req dto.PreviewRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	date, err := dto.ParseDate(req.Date)
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	n, err := h.service.Preview(c.Request.Context(), h.AccountID(c), dt, req.Pattern, date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromNumber(n, true))
}

// Next allocates a number. Call once per persisted document; the number is never returned to the pool.
// POST /api/v1/numbering/:docType/next
func (h *NumberingHandler) Next(c *gin.Context) {
	dt, ok := h.docType(c)
	if !ok {
		return
	}
	var req dto.NextNumberRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	date, err := dto.ParseDate(req.Date)
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	n, err := h.service.Next(c.Request.Context(), h.AccountID(c), dt, date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromNumber(n, false))
}

// Counters lists the account's counters.
// GET /api/v1/numbering/counters
func (h *NumberingHandler) Counters(c *gin.Context) {
	counters, err := h.service.Counters(c.Request.Context(), h.AccountID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromCounters(counters)))
}

// bindOptionalJSON accepts an empty body.
func (h *NumberingHandler) bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.BindJSON(c, obj)
}
