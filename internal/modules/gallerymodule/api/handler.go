// Package api exposes the gallery over HTTP
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/gallery/internal/logger"
	galleryerrors "github.com/mantonx/gallery/internal/modules/gallerymodule/errors"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

// Pager is the part of the query engine the handler needs
type Pager interface {
	LoadPage(ctx context.Context, page, pageSize int) (*types.Page, error)
	TotalCount(ctx context.Context) (int, error)
}

// Handler serves media pages
type Handler struct {
	pager    Pager
	gate     types.AccessGate
	pageSize int
	logger   hclog.Logger
}

// NewHandler creates a handler. pageSize is used when a request omits it.
func NewHandler(pager Pager, gate types.AccessGate, pageSize int, l hclog.Logger) *Handler {
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	return &Handler{
		pager:    pager,
		gate:     gate,
		pageSize: pageSize,
		logger:   logger.OrNull(l).Named("api"),
	}
}

// PageResponse is the body of a successful page request
type PageResponse struct {
	*types.Page
	NextKey *int `json:"next_key"`
	PrevKey *int `json:"prev_key"`
}

// ErrorResponse is the body of a failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"request_id,omitempty"`
}

// getPage returns one page of media
func (h *Handler) getPage(c *gin.Context) {
	page, ok := intQuery(c, "page", 0)
	if !ok {
		h.writeError(c, galleryerrors.InvalidPage("load_page", -1, h.pageSize))
		return
	}
	pageSize, ok := intQuery(c, "page_size", h.pageSize)
	if !ok {
		h.writeError(c, galleryerrors.InvalidPageSize("load_page", page, 0))
		return
	}

	p, err := h.pager.LoadPage(c.Request.Context(), page, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PageResponse{
		Page:    p,
		NextKey: p.NextKey(),
		PrevKey: p.PrevKey(),
	})
}

// getCount returns the number of indexed rows across both stores
func (h *Handler) getCount(c *gin.Context) {
	n, err := h.pager.TotalCount(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// getAccess reports the current grant level without prompting
func (h *Handler) getAccess(c *gin.Context) {
	level := h.gate.CheckAccess()
	c.JSON(http.StatusOK, gin.H{
		"level":     level.String(),
		"can_query": level.CanQuery(),
	})
}

// requestAccess prompts for access and reports the resulting level
func (h *Handler) requestAccess(c *gin.Context) {
	level, err := h.gate.RequestAccess(c.Request.Context())
	if err != nil {
		h.logger.Warn("access request failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: galleryerrors.UserMessage(galleryerrors.KindPermissionDenied),
			Code:  string(galleryerrors.KindPermissionDenied),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"level":     level.String(),
		"can_query": level.CanQuery(),
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	kind := galleryerrors.KindOf(err)
	status := StatusFor(kind)

	switch {
	case kind == "":
		h.logger.Warn("request aborted", "path", c.Request.URL.Path, "error", err)
	case status >= http.StatusInternalServerError:
		h.logger.Error("media request failed", "kind", kind, "error", err)
	default:
		h.logger.Debug("media request rejected", "kind", kind, "error", err)
	}

	code := string(kind)
	if code == "" {
		code = "aborted"
	}

	var gErr *galleryerrors.GalleryError
	retryable := errors.As(err, &gErr) && gErr.IsRecoverable()

	_ = c.Error(err)
	c.JSON(status, ErrorResponse{
		Error:     galleryerrors.UserMessage(kind),
		Code:      code,
		Retryable: retryable,
		RequestID: c.GetString("request_id"),
	})
}

// StatusFor maps a failure kind to an HTTP status
func StatusFor(kind galleryerrors.FailureKind) int {
	switch kind {
	case galleryerrors.KindInvalidPage, galleryerrors.KindInvalidPageSize:
		return http.StatusBadRequest
	case galleryerrors.KindPermissionDenied:
		return http.StatusForbidden
	case galleryerrors.KindNoMediaFound:
		return http.StatusNotFound
	case galleryerrors.KindNotInitialized:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
