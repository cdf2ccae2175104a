package presenter

import (
	"encoding/json"

	calldto "github.com/quietline/quietline/internal/adapter/dto/call"
	"github.com/quietline/quietline/internal/domain/entities"
	callusecase "github.com/quietline/quietline/internal/usecase/call"
)

// ToCallResponse converts a call entity to its dashboard view
func ToCallResponse(call *entities.Call) calldto.CallResponse {
	tags := []string{}
	if len(call.Tags) > 0 {
		_ = json.Unmarshal(call.Tags, &tags)
	}
	return calldto.CallResponse{
		ID:              call.ID.String(),
		ExternalSID:     call.ExternalSID,
		FromNumber:      call.FromNumber,
		ToNumber:        call.ToNumber,
		Status:          string(call.Status),
		DurationSeconds: call.DurationSeconds,
		Rating:          call.Rating,
		Notes:           call.Notes,
		Tags:            tags,
		HasRecording:    call.HasRecording(),
		StartedAt:       call.StartedAt,
		EndedAt:         call.EndedAt,
		CreatedAt:       call.CreatedAt,
	}
}

// ToCallListResponse converts a page of call entities
func ToCallListResponse(calls []*entities.Call) []calldto.CallResponse {
	out := make([]calldto.CallResponse, 0, len(calls))
	for _, call := range calls {
		out = append(out, ToCallResponse(call))
	}
	return out
}

// ToCallDetailResponse converts a call with its transcript
func ToCallDetailResponse(detail *callusecase.CallDetail) calldto.CallDetailResponse {
	segments := make([]calldto.TranscriptSegmentResponse, 0, len(detail.Segments))
	for _, seg := range detail.Segments {
		segments = append(segments, calldto.TranscriptSegmentResponse{
			Speaker:          string(seg.Speaker),
			Text:             seg.Text,
			TimestampSeconds: seg.TimestampSeconds,
		})
	}
	return calldto.CallDetailResponse{
		CallResponse: ToCallResponse(detail.Call),
		Transcript:   segments,
	}
}
