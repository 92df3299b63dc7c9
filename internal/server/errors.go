package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/dudu/hairline/internal/metrics"
	"github.com/dudu/hairline/internal/pipeline"
	"github.com/dudu/hairline/internal/progress"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes
const (
	CodeValidation        = "validation_error"
	CodeNoFace            = "no_face_detected"
	CodeInsufficientMarks = "insufficient_landmarks"
	CodePoorQuality       = "poor_image_quality"
	CodeInvalidImage      = "invalid_image"
	CodeNotFound          = "not_found"
	CodeUnavailable       = "analysis_unavailable"
	CodeInternal          = "internal_error"
)

var (
	errAnalysisUnavailable = errors.New("analysis is not available on this server")
	errMissingImage        = errors.New("image file is required")
)

func (s *Server) fields(c *fiber.Ctx, err error, operation string) logrus.Fields {
	return logrus.Fields{
		"request_id": getRequestID(c),
		"error":      err.Error(),
		"path":       c.Path(),
		"operation":  operation,
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error, operation string) error {
	switch {
	case errors.Is(err, pipeline.ErrNoFaceDetected):
		s.log.WithFields(s.fields(c, err, operation)).Warn("No face detected")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error: "No face detected in the photo",
			Code:  CodeNoFace,
		})

	case errors.Is(err, metrics.ErrInsufficientLandmarks):
		s.log.WithFields(s.fields(c, err, operation)).Warn("Insufficient landmarks")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error: "Face landmarks do not cover the forehead",
			Code:  CodeInsufficientMarks,
		})

	case errors.Is(err, progress.ErrNotFound):
		s.log.WithFields(s.fields(c, err, operation)).Warn("Snapshot not found")
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "Snapshot not found",
			Code:  CodeNotFound,
		})

	case errors.Is(err, progress.ErrInvalidSnapshot), errors.Is(err, errMissingImage):
		return s.handleValidationError(c, err)

	case errors.Is(err, errAnalysisUnavailable):
		s.log.WithFields(s.fields(c, err, operation)).Warn("Analysis unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: err.Error(),
			Code:  CodeUnavailable,
		})
	}

	s.log.WithFields(s.fields(c, err, operation)).Error("Unexpected error")
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "An unexpected error occurred",
		Code:  CodeInternal,
	})
}

func (s *Server) handleValidationError(c *fiber.Ctx, err error) error {
	s.log.WithFields(logrus.Fields{
		"request_id": getRequestID(c),
		"error":      err.Error(),
		"path":       c.Path(),
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  CodeValidation,
	})
}
