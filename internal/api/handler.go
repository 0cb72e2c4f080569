package api

import (
	"errors"
	"io"
	"net/http"

	"pv_design/internal/domain"
	"pv_design/internal/formatter"
	"pv_design/internal/service"
	"pv_design/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the block configurator.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// statusFor maps the core error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var validation *domain.ValidationError
	var configuration *domain.ConfigurationError
	var lookup *domain.LookupFailure
	var capacity *domain.CapacityExceeded
	switch {
	case errors.As(err, &validation), errors.As(err, &configuration):
		return http.StatusBadRequest
	case errors.As(err, &lookup):
		return http.StatusNotFound
	case errors.As(err, &capacity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

type createBlockRequest struct {
	BlockID      string `json:"block_id"`
	Template     string `json:"template" binding:"required"`
	TrackerCount int    `json:"tracker_count" binding:"required"`
	WiringType   string `json:"wiring_type" binding:"required"`
	Inverter     string `json:"inverter"`
}

// CreateBlock handles POST /api/blocks
func (h *Handler) CreateBlock(c *gin.Context) {
	var req createBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	block, err := h.svc.CreateBlock(req.BlockID, req.Template, req.TrackerCount, domain.WiringType(req.WiringType), req.Inverter)
	if err != nil {
		logger.Errorf("Create block failed: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"block":  block,
	})
}

// GetBlocks handles GET /api/blocks
func (h *Handler) GetBlocks(c *gin.Context) {
	blocks := h.svc.GetBlocks()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(blocks),
		"blocks": blocks,
	})
}

// GetBlock handles GET /api/blocks/:id
func (h *Handler) GetBlock(c *gin.Context) {
	block, ok := h.svc.GetBlock(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	c.JSON(http.StatusOK, block)
}

// DeleteBlock handles DELETE /api/blocks/:id
func (h *Handler) DeleteBlock(c *gin.Context) {
	if err := h.svc.DeleteBlock(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type configureWiringRequest struct {
	WiringType string `json:"wiring_type" binding:"required"`
}

// ConfigureWiring handles PUT /api/blocks/:id/wiring
func (h *Handler) ConfigureWiring(c *gin.Context) {
	var req configureWiringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	block, err := h.svc.ConfigureWiring(c.Param("id"), domain.WiringType(req.WiringType))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"block":  block,
	})
}

// ValidateBlock handles POST /api/blocks/:id/validate
func (h *Handler) ValidateBlock(c *gin.Context) {
	violations, err := h.svc.ValidateBlock(c.Param("id"), c.Query("inverter"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":      len(violations) == 0,
		"violations": violations,
	})
}

type sizingRequest struct {
	NumStrings int     `json:"num_strings" binding:"required"`
	ModuleIsc  float64 `json:"module_isc" binding:"required"`
	NECFactor  float64 `json:"nec_factor"`
}

// CalculateSizes handles POST /api/sizing
func (h *Handler) CalculateSizes(c *gin.Context) {
	var req sizingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	set, err := h.svc.CalculateCableSizes(req.NumStrings, req.ModuleIsc, req.NECFactor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// ImportPAN handles POST /api/modules/pan with the PAN text as body.
func (h *Handler) ImportPAN(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}
	spec, err := h.svc.ImportPAN(string(body))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"module": spec,
	})
}

// GetTemplates handles GET /api/templates
func (h *Handler) GetTemplates(c *gin.Context) {
	templates := h.svc.Templates().All()
	c.JSON(http.StatusOK, gin.H{
		"count":     len(templates),
		"format":    h.svc.Templates().Format(),
		"templates": templates,
	})
}

// GetInverters handles GET /api/inverters
func (h *Handler) GetInverters(c *gin.Context) {
	inverters := h.svc.Inverters().All()
	c.JSON(http.StatusOK, gin.H{
		"count":     len(inverters),
		"inverters": inverters,
	})
}

// GetBOM handles GET /api/bom
func (h *Handler) GetBOM(c *gin.Context) {
	lines, err := formatter.BuildBOM(h.svc.GetBlocks())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(lines),
		"lines": lines,
	})
}

type projectRequest struct {
	Name string `json:"name" binding:"required"`
}

// SaveProject handles POST /api/project/save
func (h *Handler) SaveProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	path, err := h.svc.SaveProject(req.Name)
	if err != nil {
		logger.Errorf("Save project failed: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"path":   path,
	})
}

// LoadProject handles POST /api/project/load
func (h *Handler) LoadProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	failed, err := h.svc.LoadProject(req.Name)
	if err != nil {
		logger.Errorf("Load project failed: %v", err)
		respondError(c, err)
		return
	}
	blocks := h.svc.GetBlocks()
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"loaded_blocks":  len(blocks),
		"skipped_blocks": failed,
	})
}

// GetStats handles GET /api/stats
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}
