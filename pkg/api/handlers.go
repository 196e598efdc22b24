// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the REST CRUD surface for tasks.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskmig/core/pkg/resilience"
	"github.com/taskmig/core/pkg/storage/dual"
	"github.com/taskmig/core/pkg/task"
	"github.com/taskmig/core/pkg/tasks"
)

// taskRequest is the JSON body of create and edit calls.
type taskRequest struct {
	Title       string      `json:"title" binding:"required"`
	Description string      `json:"description"`
	Status      task.Status `json:"status"`
}

// Handler serves the task routes.
type Handler struct {
	svc    *tasks.Service
	logger *slog.Logger
}

// NewHandler creates the task handler.
func NewHandler(svc *tasks.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the task routes on the router group.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/tasks")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

func (h *Handler) create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), tasks.Command{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		h.fail(c, "create task", err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list tasks", err)
		return
	}
	if list == nil {
		list = []*task.Task{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get task", err)
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	t, err := h.svc.Edit(c.Request.Context(), id, tasks.Command{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		h.fail(c, "update task", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid task id"})
		return uuid.Nil, false
	}
	return id, true
}

// fail maps service errors to HTTP statuses: NotFound to 404, validation to
// 422, both-stores-down to 503, everything else to 500.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case isValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case isUnavailable(err):
		h.logger.Error("stores unavailable", "op", op, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func isValidation(err error) bool {
	var permanent *resilience.PermanentError
	return errors.As(err, &permanent)
}

func isUnavailable(err error) bool {
	var unavailable *dual.BothUnavailableError
	var failed *dual.BothFailedError
	return errors.As(err, &unavailable) || errors.As(err, &failed)
}
