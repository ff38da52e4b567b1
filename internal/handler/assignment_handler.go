package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-assignment-manager/internal/dto"
	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	"github.com/noah-isme/canvas-assignment-manager/internal/service"
	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
	"github.com/noah-isme/canvas-assignment-manager/pkg/jobs"
	"github.com/noah-isme/canvas-assignment-manager/pkg/response"
)

// JobTypeRefresh labels background refresh jobs.
const JobTypeRefresh = "refresh"

type assignmentStore interface {
	Snapshot() models.StoreSnapshot
	SetConfig(ctx context.Context, cfg models.APIConfig) error
	Clear(ctx context.Context) error
	Refresh(ctx context.Context) error
	BeginRefresh() error
	RunRefresh(ctx context.Context) error
	SetLoading(loading bool)
	NeedsInitialFetch() bool
	View(name string) ([]models.ClassifiedAssignment, error)
	Assignment(id int64) (models.ClassifiedAssignment, bool)
	SetAssignments(ctx context.Context, items []models.ClassifiedAssignment) error
	ToggleSelection(ctx context.Context, id int64) (bool, error)
	ToggleVisibility(ctx context.Context, id int64) (bool, error)
	SelectAll(ctx context.Context) error
	DeselectAll(ctx context.Context) error
	SetShowHiddenAssignments(ctx context.Context, show bool) error
}

type selectionExporter interface {
	Render(format string) (*service.ExportFile, error)
}

type refresher interface {
	RunRefresh(ctx context.Context) error
}

type refreshQueue interface {
	Enqueue(job jobs.Job) (jobs.Job, error)
	State(id string) (jobs.State, bool)
}

// AssignmentHandler exposes the assignment store over HTTP.
type AssignmentHandler struct {
	store       assignmentStore
	exporter    selectionExporter
	queue       refreshQueue
	logger      *zap.Logger
	autoRefresh bool
	now         func() time.Time
}

// NewAssignmentHandler builds an AssignmentHandler. A nil queue makes refresh synchronous.
func NewAssignmentHandler(store assignmentStore, exporter selectionExporter, queue refreshQueue, logger *zap.Logger) *AssignmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentHandler{store: store, exporter: exporter, queue: queue, logger: logger, now: time.Now}
}

// EnableAutoRefresh makes a successful UpdateConfig start a fetch when the store is still empty.
func (h *AssignmentHandler) EnableAutoRefresh() {
	h.autoRefresh = true
}

// StartInitialRefresh fetches in the background when a configuration exists but no assignments
// have been loaded yet. It reports whether a fetch was started.
func (h *AssignmentHandler) StartInitialRefresh(ctx context.Context) bool {
	if !h.store.NeedsInitialFetch() {
		return false
	}
	if err := h.store.BeginRefresh(); err != nil {
		return false
	}
	if h.queue != nil {
		job, err := h.queue.Enqueue(jobs.Job{Type: JobTypeRefresh})
		if err != nil {
			h.store.SetLoading(false)
			h.logger.Warn("failed to schedule initial refresh", zap.Error(err))
			return false
		}
		h.logger.Info("initial refresh scheduled", zap.String("job_id", job.ID))
		return true
	}
	go func() {
		if err := h.store.RunRefresh(ctx); err != nil {
			h.logger.Warn("initial refresh failed", zap.Error(err))
		}
	}()
	return true
}

// State godoc
// @Summary Current store state
// @Tags State
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/state [get]
func (h *AssignmentHandler) State(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.store.Snapshot())
}

// Clear godoc
// @Summary Reset the store and erase persisted data
// @Tags State
// @Success 204
// @Router /api/state [delete]
func (h *AssignmentHandler) Clear(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateConfig godoc
// @Summary Save Canvas credentials
// @Tags State
// @Accept json
// @Produce json
// @Param payload body dto.UpdateConfigRequest true "Canvas credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/config [put]
func (h *AssignmentHandler) UpdateConfig(c *gin.Context) {
	var req dto.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}
	if err := h.store.SetConfig(c.Request.Context(), models.APIConfig{BaseURL: req.BaseURL, APIKey: req.APIKey}); err != nil {
		response.Error(c, err)
		return
	}
	if h.autoRefresh {
		h.StartInitialRefresh(context.WithoutCancel(c.Request.Context()))
	}
	response.JSON(c, http.StatusOK, h.store.Snapshot())
}

// Refresh godoc
// @Summary Fetch assignments from Canvas
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /api/assignments/refresh [post]
func (h *AssignmentHandler) Refresh(c *gin.Context) {
	if h.queue != nil {
		h.refreshAsync(c)
		return
	}
	if err := h.store.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RefreshResponse{State: h.store.Snapshot()})
}

func (h *AssignmentHandler) refreshAsync(c *gin.Context) {
	if err := h.store.BeginRefresh(); err != nil {
		response.Error(c, err)
		return
	}
	snap := h.store.Snapshot()
	job, err := h.queue.Enqueue(jobs.Job{Type: JobTypeRefresh})
	if err != nil {
		h.store.SetLoading(false)
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule refresh"))
		return
	}
	state, _ := h.queue.State(job.ID)
	response.Accepted(c, dto.RefreshResponse{State: snap, Job: &state})
}

// Job godoc
// @Summary Background refresh status
// @Tags Assignments
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/jobs/{id} [get]
func (h *AssignmentHandler) Job(c *gin.Context) {
	if h.queue == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "background refresh disabled"))
		return
	}
	state, ok := h.queue.State(c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "job not found"))
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param view query string false "visible (default), hidden, selected or all"
// @Success 200 {object} response.Envelope
// @Router /api/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	view := c.DefaultQuery("view", models.ViewVisible)
	items, err := h.store.View(view)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"view": view, "count": len(items)})
}

// Replace godoc
// @Summary Replace the assignment collection
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.ReplaceAssignmentsRequest true "Assignments"
// @Success 200 {object} response.Envelope
// @Router /api/assignments [put]
func (h *AssignmentHandler) Replace(c *gin.Context) {
	var req dto.ReplaceAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignments payload"))
		return
	}
	if err := h.store.SetAssignments(c.Request.Context(), req.Assignments); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.store.Snapshot())
}

// Demo godoc
// @Summary Load sample assignments without Canvas credentials
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/assignments/demo [post]
func (h *AssignmentHandler) Demo(c *gin.Context) {
	if err := h.store.SetAssignments(c.Request.Context(), service.DemoAssignments(h.now())); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.store.Snapshot())
}

// ToggleSelection godoc
// @Summary Toggle an assignment's selection
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/assignments/{id}/toggle-selection [post]
func (h *AssignmentHandler) ToggleSelection(c *gin.Context) {
	h.toggle(c, h.store.ToggleSelection)
}

// ToggleVisibility godoc
// @Summary Toggle an assignment's hidden flag
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/assignments/{id}/toggle-visibility [post]
func (h *AssignmentHandler) ToggleVisibility(c *gin.Context) {
	h.toggle(c, h.store.ToggleVisibility)
}

func (h *AssignmentHandler) toggle(c *gin.Context, apply func(context.Context, int64) (bool, error)) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}
	found, err := apply(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assignment %d not found", id)))
		return
	}
	item, _ := h.store.Assignment(id)
	response.JSON(c, http.StatusOK, dto.AssignmentFlags{
		ID:           item.ID,
		IsSelected:   item.IsSelected,
		IsHidden:     item.IsHidden,
		IsDueInClass: item.IsDueInClass,
	})
}

// SelectAll godoc
// @Summary Select every visible assignment
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/assignments/select-all [post]
func (h *AssignmentHandler) SelectAll(c *gin.Context) {
	if err := h.store.SelectAll(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.store.Snapshot())
}

// DeselectAll godoc
// @Summary Clear every selection
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/assignments/deselect-all [post]
func (h *AssignmentHandler) DeselectAll(c *gin.Context) {
	if err := h.store.DeselectAll(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.store.Snapshot())
}

// SetShowHidden godoc
// @Summary Show or hide hidden assignments
// @Tags State
// @Accept json
// @Produce json
// @Param payload body dto.ShowHiddenRequest true "Flag"
// @Success 200 {object} response.Envelope
// @Router /api/settings/show-hidden [put]
func (h *AssignmentHandler) SetShowHidden(c *gin.Context) {
	var req dto.ShowHiddenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "show flag required"))
		return
	}
	if err := h.store.SetShowHiddenAssignments(c.Request.Context(), *req.Show); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.store.Snapshot())
}

// Export godoc
// @Summary Download the selected assignments
// @Tags Assignments
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /api/assignments/export [get]
func (h *AssignmentHandler) Export(c *gin.Context) {
	file, err := h.exporter.Render(c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// RefreshJob adapts the store to a jobs.Handler for the background queue. The enqueuing side has
// already claimed the refresh with BeginRefresh.
func RefreshJob(store refresher, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		if err := store.RunRefresh(ctx); err != nil {
			logger.Warn("background refresh failed", zap.String("job_id", job.ID), zap.Error(err))
			return err
		}
		return nil
	}
}
