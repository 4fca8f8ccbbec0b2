package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"jobhelper/internal/shared/apperr"
	"jobhelper/internal/shared/server/middleware"
	"jobhelper/internal/shared/server/respond"
	"jobhelper/internal/shared/util"
)

const maxUploadSize = 20 << 20 // 20MB across all files of one request

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.state)
	rg.POST("/session/resume", h.uploadResume)
	rg.POST("/session/images", h.uploadImages)
	rg.POST("/session/website", h.website)
	rg.POST("/session/submit", h.submit)
	rg.POST("/session/answers/:position/copy", h.copy)
	rg.POST("/session/reset", h.reset)
}

func (h *Handler) state(c *gin.Context) {
	h.ok(c, h.Svc.State())
}

func (h *Handler) uploadResume(c *gin.Context) {
	h.upload(c, h.Svc.UploadResume)
}

func (h *Handler) uploadImages(c *gin.Context) {
	h.upload(c, h.Svc.UploadImages)
}

func (h *Handler) upload(c *gin.Context, fn func(context.Context, []Upload) (State, error)) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	files := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		name, err := util.SanitizeFileName(fh.Filename)
		if err != nil {
			name = "upload"
		}
		files = append(files, Upload{Name: name, Data: data})
	}

	st, err := fn(c.Request.Context(), files)
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.ok(c, st)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type websiteRequest struct {
	URL string `json:"url"`
}

func (h *Handler) website(c *gin.Context) {
	var req websiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	st, err := h.Svc.FetchWebsite(c.Request.Context(), req.URL)
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.ok(c, st)
}

func (h *Handler) submit(c *gin.Context) {
	st, started, err := h.Svc.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, st, err)
		return
	}
	if !started {
		h.tag(c, st)
		respond.Error(c, http.StatusConflict, "conflict", fmt.Sprintf("Submit is not available while %s.", st.Phase), nil)
		return
	}
	h.ok(c, st)
}

func (h *Handler) copy(c *gin.Context) {
	position, err := strconv.Atoi(strings.TrimSpace(c.Param("position")))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "position must be an integer", nil)
		return
	}

	answer, err := h.Svc.Copy(position)
	if err != nil {
		h.fail(c, h.Svc.State(), err)
		return
	}
	h.tag(c, h.Svc.State())
	respond.OK(c, gin.H{"copied": answer})
}

func (h *Handler) reset(c *gin.Context) {
	st, err := h.Svc.Reset()
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.ok(c, st)
}

func (h *Handler) ok(c *gin.Context, st State) {
	h.tag(c, st)
	respond.OK(c, st)
}

func (h *Handler) tag(c *gin.Context, st State) {
	c.Set(middleware.SessionIDKey, st.SessionID)
	c.Set(middleware.PhaseKey, string(st.Phase))
}

func (h *Handler) fail(c *gin.Context, st State, err error) {
	h.tag(c, st)
	switch {
	case errors.Is(err, ErrInvalidPhase):
		respond.Error(c, http.StatusConflict, "conflict", fmt.Sprintf("Action not available while %s.", st.Phase), nil)
		return
	case errors.Is(err, context.Canceled):
		respond.Error(c, 499, "canceled", "request canceled", nil)
		return
	}

	kind := apperr.KindOf(err)
	respond.Error(c, statusFor(kind), string(kind), apperr.Message(err), gin.H{"state": st})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInput:
		return http.StatusBadRequest
	case apperr.KindFetch, apperr.KindUpstream, apperr.KindFormat:
		return http.StatusBadGateway
	case apperr.KindConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
