package dto

import (
	"errors"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/investor"
	"github.com/irdash/backend/internal/domain/shared"
)

// PageResponse is a paginated cache snapshot as served to views. Error is
// set when the latest fetch failed; Rows then hold the last good page.
type PageResponse[T any] struct {
	Rows       []T        `json:"rows"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	TotalRows  int64      `json:"total_rows"`
	PageSize   int        `json:"page_size"`
	State      string     `json:"state"`
	Error      *ErrorInfo `json:"error,omitempty"`
}

// NewPageResponse converts a snapshot.
func NewPageResponse[T any](snap dashboard.PageSnapshot[T]) PageResponse[T] {
	rows := snap.Rows
	if rows == nil {
		rows = []T{}
	}
	return PageResponse[T]{
		Rows:       rows,
		Page:       snap.Page,
		TotalPages: snap.TotalPages,
		TotalRows:  snap.TotalRows,
		PageSize:   snap.PageSize,
		State:      string(snap.State),
		Error:      ErrorInfoFor(snap.Err),
	}
}

// MetaOf returns the pagination meta of a snapshot.
func MetaOf[T any](snap dashboard.PageSnapshot[T]) Meta {
	return Meta{
		Total:      snap.TotalRows,
		Page:       snap.Page,
		PageSize:   snap.PageSize,
		TotalPages: snap.TotalPages,
	}
}

// VolumeResponse is one committed volume emission.
type VolumeResponse struct {
	Ready   bool               `json:"ready"`
	Version uint64             `json:"version"`
	Volumes investor.VolumeMap `json:"volumes"`
	Error   *ErrorInfo         `json:"error,omitempty"`
}

// NewVolumeResponse converts an update. Volumes is never null.
func NewVolumeResponse(u dashboard.VolumeUpdate) VolumeResponse {
	volumes := u.Volumes
	if volumes == nil {
		volumes = investor.VolumeMap{}
	}
	return VolumeResponse{
		Ready:   true,
		Version: u.Version,
		Volumes: volumes,
		Error:   ErrorInfoFor(u.Err),
	}
}

// PendingVolumeResponse is served before the first computation.
func PendingVolumeResponse() VolumeResponse {
	return VolumeResponse{Volumes: investor.VolumeMap{}}
}

// ErrorInfoFor describes err without leaking its cause; nil for nil.
func ErrorInfoFor(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	code, message := Classify(err)
	return &ErrorInfo{Code: code, Message: message}
}

// Classify returns the API code and a client safe message for err. Gateway
// failures keep their kind; a missing row or rejected input inside one is
// reported as such.
func Classify(err error) (code, message string) {
	if errors.Is(err, shared.ErrNotFound) {
		return ErrCodeNotFound, shared.ErrNotFound.Message
	}

	var gwErr *shared.GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Err != nil && errors.Is(gwErr.Err, shared.ErrInvalidInput) {
			return ErrCodeInvalidInput, gwErr.Err.Error()
		}
		return NormalizeErrorCode(gwErr.Kind.Code), gwErr.Kind.Message
	}

	if kind := shared.ErrorKind(err); kind != nil {
		return NormalizeErrorCode(kind.Code), err.Error()
	}
	return ErrCodeInternal, "An unexpected error occurred"
}
