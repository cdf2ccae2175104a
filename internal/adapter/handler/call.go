package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quietline/quietline/errors"
	calldto "github.com/quietline/quietline/internal/adapter/dto/call"
	"github.com/quietline/quietline/internal/adapter/dto/common"
	"github.com/quietline/quietline/internal/adapter/presenter"
	"github.com/quietline/quietline/internal/domain/repositories"
	callusecase "github.com/quietline/quietline/internal/usecase/call"
)

// maxRecordingBytes caps recording uploads at 100 MiB
const maxRecordingBytes = 100 << 20

// Call handles the dashboard call endpoints
type Call struct {
	service   callusecase.Service
	urlExpiry int64
	logger    *zap.Logger
}

// NewCallHandler creates a new call handler
func NewCallHandler(service callusecase.Service, urlExpirySeconds int64, logger *zap.Logger) *Call {
	return &Call{service: service, urlExpiry: urlExpirySeconds, logger: logger}
}

// List returns a filtered page of calls
// GET /v1/calls
func (h *Call) List(c echo.Context) error {
	var req calldto.ListCallsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}

	filters := repositories.CallFilters{
		Status:     req.Status,
		FromNumber: req.From,
		Tag:        req.Tag,
		Search:     req.Search,
		Limit:      req.PageSize,
		Offset:     (req.Page - 1) * req.PageSize,
	}

	calls, total, err := h.service.ListCalls(c.Request().Context(), filters)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, common.ListResponse{
		Data:       presenter.ToCallListResponse(calls),
		Pagination: common.NewPagination(req.Page, req.PageSize, total),
	})
}

// Get returns one call with its transcript
// GET /v1/calls/:id
func (h *Call) Get(c echo.Context) error {
	id, err := parseCallID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	detail, err := h.service.GetCall(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToCallDetailResponse(detail))
}

// Rate sets the operator rating
// PATCH /v1/calls/:id/rating
func (h *Call) Rate(c echo.Context) error {
	id, err := parseCallID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req calldto.RateCallRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidRating(req.Rating))
	}

	call, err := h.service.RateCall(c.Request().Context(), id, req.Rating)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToCallResponse(call))
}

// UpdateNotes replaces the operator notes
// PUT /v1/calls/:id/notes
func (h *Call) UpdateNotes(c echo.Context) error {
	id, err := parseCallID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req calldto.UpdateNotesRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	call, err := h.service.UpdateNotes(c.Request().Context(), id, req.Notes)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToCallResponse(call))
}

// UpdateTags replaces the tag list
// PUT /v1/calls/:id/tags
func (h *Call) UpdateTags(c echo.Context) error {
	id, err := parseCallID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req calldto.UpdateTagsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	call, err := h.service.UpdateTags(c.Request().Context(), id, req.Tags)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToCallResponse(call))
}

// Delete removes a call
// DELETE /v1/calls/:id
func (h *Call) Delete(c echo.Context) error {
	id, err := parseCallID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.service.DeleteCall(c.Request().Context(), id); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, nil)
}

// UploadRecording attaches an audio recording to a call
// POST /v1/calls/:id/recording
func (h *Call) UploadRecording(c echo.Context) error {
	id, err := parseCallID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	file, err := c.FormFile("recording")
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("recording file is required"))
	}
	if file.Size > maxRecordingBytes {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("recording exceeds size limit"))
	}

	src, err := file.Open()
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	call, err := h.service.UploadRecording(c.Request().Context(), id, src, file.Size, contentType)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToCallResponse(call))
}

// GetRecording returns a presigned playback URL
// GET /v1/calls/:id/recording
func (h *Call) GetRecording(c echo.Context) error {
	id, err := parseCallID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	url, err := h.service.RecordingURL(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, calldto.RecordingURLResponse{
		URL:       url,
		ExpiresIn: h.urlExpiry,
	})
}

// Stats returns dashboard aggregates
// GET /v1/stats
func (h *Call) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, stats)
}

// ActiveSessions lists the calls currently bridging audio
// GET /v1/stats/active
func (h *Call) ActiveSessions(c echo.Context) error {
	return HandleSuccess(h.logger, c, h.service.ActiveSessions(c.Request().Context()))
}

func parseCallID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.ErrInvalidArgument("invalid call id")
	}
	return id, nil
}
