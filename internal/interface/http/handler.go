package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/telemetry-trend/internal/domain/chart"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
)

// Handler wires the HTTP transport to the trend session service.
type Handler struct {
	svc    trend.Service
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc trend.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.With("component", "http.handler"),
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// LatestDevices passes the collector's latest device snapshots through.
func (h *Handler) LatestDevices(c *gin.Context) {
	payload, err := h.svc.LatestDevices(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// OpenSession starts watching a device tag.
func (h *Handler) OpenSession(c *gin.Context) {
	var target trend.Target
	if err := c.ShouldBindJSON(&target); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	view, err := h.svc.Open(c.Request.Context(), target)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetSession returns the current snapshot of a session.
func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	h.respondView(c, view, err)
}

// Retarget switches the session to another device tag.
func (h *Handler) Retarget(c *gin.Context) {
	var target trend.Target
	if err := c.ShouldBindJSON(&target); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	view, err := h.svc.Retarget(c.Request.Context(), c.Param("id"), target)
	h.respondView(c, view, err)
}

func (h *Handler) Suspend(c *gin.Context) {
	view, err := h.svc.Suspend(c.Request.Context(), c.Param("id"))
	h.respondView(c, view, err)
}

// Stop idles a session until it is resumed.
func (h *Handler) Stop(c *gin.Context) {
	view, err := h.svc.Stop(c.Request.Context(), c.Param("id"))
	h.respondView(c, view, err)
}

func (h *Handler) Resume(c *gin.Context) {
	view, err := h.svc.Resume(c.Request.Context(), c.Param("id"))
	h.respondView(c, view, err)
}

func (h *Handler) Refresh(c *gin.Context) {
	view, err := h.svc.Refresh(c.Request.Context(), c.Param("id"))
	h.respondView(c, view, err)
}

// CloseSession tears a session down.
func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.svc.Close(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// Predict fetches and overlays a forecast.
func (h *Handler) Predict(c *gin.Context) {
	view, err := h.svc.Predict(c.Request.Context(), c.Param("id"))
	h.respondView(c, view, err)
}

func (h *Handler) Accuracy(c *gin.Context) {
	assessment, err := h.svc.Accuracy(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// Chart renders the session's chart as SVG or PNG.
func (h *Handler) Chart(c *gin.Context) {
	req, httpErr := chartRequestFrom(c)
	if httpErr != nil {
		abortWithError(c, httpErr)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Chart(c.Request.Context(), c.Param("id"), req, &buf); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, req.Format.ContentType(), buf.Bytes())
}

// Hover resolves the values under a pointer position.
func (h *Handler) Hover(c *gin.Context) {
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	y, errY := strconv.ParseFloat(c.Query("y"), 64)
	if errX != nil || errY != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "x and y must be numbers", nil))
		return
	}
	width, height, httpErr := sizeFrom(c)
	if httpErr != nil {
		abortWithError(c, httpErr)
		return
	}
	hover, ok, err := h.svc.Hover(c.Request.Context(), c.Param("id"), trend.HoverRequest{X: x, Y: y, Width: width, Height: height})
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"hit": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hit": true, "hover": hover})
}

// ExportChart renders the chart and stores it in object storage.
func (h *Handler) ExportChart(c *gin.Context) {
	req, httpErr := chartRequestFrom(c)
	if httpErr != nil {
		abortWithError(c, httpErr)
		return
	}
	export, err := h.svc.ExportChart(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusCreated, export)
}

func (h *Handler) respondView(c *gin.Context, view trend.View, err error) {
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, view)
}

func chartRequestFrom(c *gin.Context) (trend.ChartRequest, *HTTPError) {
	width, height, httpErr := sizeFrom(c)
	if httpErr != nil {
		return trend.ChartRequest{}, httpErr
	}
	format, err := chart.ParseFormat(c.Query("format"))
	if err != nil {
		return trend.ChartRequest{}, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err)
	}
	return trend.ChartRequest{Width: width, Height: height, Format: format}, nil
}

func sizeFrom(c *gin.Context) (int, int, *HTTPError) {
	width, err := optionalInt(c.Query("width"))
	if err != nil {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "invalid_request", "width must be an integer", err)
	}
	height, err := optionalInt(c.Query("height"))
	if err != nil {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "invalid_request", "height must be an integer", err)
	}
	return width, height, nil
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
