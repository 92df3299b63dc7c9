package server

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dudu/hairline/internal/archive"
	"github.com/dudu/hairline/internal/progress"
)

// AnalysisRequest is the non-file part of an analysis upload
type AnalysisRequest struct {
	SubjectID string `validate:"required,max=128,subject"`
	Timestamp string `validate:"omitempty,timestamp"`
}

// SubjectsResponse lists known subjects
type SubjectsResponse struct {
	Subjects []string `json:"subjects"`
}

// SnapshotsResponse is a subject's sorted history
type SnapshotsResponse struct {
	SubjectID string              `json:"subject_id"`
	Snapshots []progress.Snapshot `json:"snapshots"`
}

// ReportResponse wraps the report with its text rendering
type ReportResponse struct {
	*progress.Report
	Text string `json:"text"`
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
		return archive.ValidateSubject(fl.Field().String()) == nil
	}); err != nil {
		return nil, fmt.Errorf("failed to register subject validation: %w", err)
	}
	if err := v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, err := progress.ParseTimestamp(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("failed to register timestamp validation: %w", err)
	}
	return v, nil
}
