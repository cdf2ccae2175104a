package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quietline/quietline/internal/infrastructure/http/middleware"
	callusecase "github.com/quietline/quietline/internal/usecase/call"
)

// Twilio handles the telephony webhooks that start and finalize calls
type Twilio struct {
	service       callusecase.Service
	publicBaseURL string
	logger        *zap.Logger
}

// NewTwilioHandler creates a new telephony webhook handler
func NewTwilioHandler(service callusecase.Service, publicBaseURL string, logger *zap.Logger) *Twilio {
	return &Twilio{service: service, publicBaseURL: publicBaseURL, logger: logger}
}

// Voice answers an inbound call: it records the call and returns TwiML that
// connects the call's audio to the media-stream endpoint.
// POST /v1/webhooks/voice
func (h *Twilio) Voice(c echo.Context) error {
	params := middleware.TwilioParams(c)
	callSID := params["CallSid"]
	from := params["From"]
	to := params["To"]

	if callSID == "" {
		return c.String(http.StatusBadRequest, "missing CallSid")
	}

	if _, err := h.service.RecordInbound(c.Request().Context(), callSID, from, to); err != nil {
		// The bridge tolerates a missing record; answer the call anyway.
		h.logger.Warn("failed to record inbound call",
			zap.String("call_sid", callSID),
			zap.Error(err))
	}

	h.logger.Info("inbound call",
		zap.String("call_sid", callSID),
		zap.String("from", from))

	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
	<Connect>
		<Stream url="%s" />
	</Connect>
</Response>`, h.streamURL())

	return c.Blob(http.StatusOK, "text/xml", []byte(twiml))
}

// Status finalizes calls that ended outside the bridge (busy, no-answer,
// caller hung up before the stream opened).
// POST /v1/webhooks/status
func (h *Twilio) Status(c echo.Context) error {
	params := middleware.TwilioParams(c)
	callSID := params["CallSid"]
	status := params["CallStatus"]

	if callSID == "" {
		return c.String(http.StatusBadRequest, "missing CallSid")
	}

	h.logger.Info("call status update",
		zap.String("call_sid", callSID),
		zap.String("status", status))

	ctx := c.Request().Context()
	switch status {
	case "completed":
		seconds, _ := strconv.Atoi(params["CallDuration"])
		if err := h.service.MarkCompletedBySID(ctx, callSID, time.Duration(seconds)*time.Second); err != nil {
			h.logger.Warn("failed to finalize call from status callback", zap.Error(err))
		}
	case "failed", "busy", "no-answer", "canceled":
		if err := h.service.MarkFailed(ctx, callSID); err != nil {
			h.logger.Warn("failed to mark call failed", zap.Error(err))
		}
	}

	return c.NoContent(http.StatusOK)
}

// streamURL derives the wss:// media-stream endpoint from the public base URL
func (h *Twilio) streamURL() string {
	base := strings.TrimSuffix(h.publicBaseURL, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/v1/stream"
}
