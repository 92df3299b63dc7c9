package server

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/dudu/hairline/internal/imageio"
	"github.com/dudu/hairline/internal/progress"
)

// Health reports liveness
func (s *Server) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ListSubjects returns every subject with stored snapshots
func (s *Server) ListSubjects(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	subjects, err := s.tracker.Store().Subjects(ctx)
	if err != nil {
		return s.handleError(c, err, "list_subjects")
	}
	if subjects == nil {
		subjects = []string{}
	}
	return c.JSON(SubjectsResponse{Subjects: subjects})
}

// ListSnapshots returns the subject's snapshots sorted by timestamp
func (s *Server) ListSnapshots(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	subject := c.Params("subject")
	if err := s.validator.Var(subject, "required,subject"); err != nil {
		return s.handleValidationError(c, err)
	}

	snaps, err := s.tracker.Series(ctx, subject)
	if err != nil {
		return s.handleError(c, err, "list_snapshots")
	}
	if snaps == nil {
		snaps = []progress.Snapshot{}
	}
	return c.JSON(SnapshotsResponse{SubjectID: subject, Snapshots: snaps})
}

// GetReport returns the subject's progress report. ?format=text returns the
// plain text rendering.
func (s *Server) GetReport(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	subject := c.Params("subject")
	if err := s.validator.Var(subject, "required,subject"); err != nil {
		return s.handleValidationError(c, err)
	}

	report, err := s.tracker.BuildReport(ctx, subject)
	if err != nil {
		return s.handleError(c, err, "build_report")
	}

	if c.Query("format") == "text" {
		return c.SendString(report.Text())
	}
	return c.JSON(ReportResponse{Report: report, Text: report.Text()})
}

// CreateAnalysis analyzes an uploaded photo and records the snapshot
func (s *Server) CreateAnalysis(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	req := AnalysisRequest{
		SubjectID: c.Params("subject"),
		Timestamp: c.FormValue("timestamp"),
	}
	if err := s.validator.Struct(req); err != nil {
		return s.handleValidationError(c, err)
	}
	if s.analyzer == nil {
		return s.handleError(c, errAnalysisUnavailable, "create_analysis")
	}

	data, err := readUpload(c, "image")
	if err != nil {
		return s.handleValidationError(c, err)
	}

	img, err := imageio.Decode(data)
	if err != nil {
		s.log.WithFields(s.fields(c, err, "decode_image")).Warn("Invalid image upload")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Uploaded file is not a readable image",
			Code:  CodeInvalidImage,
		})
	}
	defer img.Close()

	if s.enhancer != nil {
		if q := s.enhancer.Validate(img); !q.OK {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
				Error:   q.Reason,
				Code:    CodePoorQuality,
				Details: fmt.Sprintf("brightness %.1f", q.Brightness),
			})
		}
	}

	result, err := s.analyzer.AnalyzeAndRecord(ctx, img, s.tracker, req.SubjectID, req.Timestamp)
	if err != nil {
		return s.handleError(c, err, "create_analysis")
	}

	if s.archive != nil {
		if _, err := s.archive.SaveResult(result, result.SubjectID, result.Timestamp); err != nil {
			s.log.WithFields(s.fields(c, err, "save_result")).Warn("Failed to archive analysis result")
		}
	}

	s.log.WithFields(logrus.Fields{
		"request_id": getRequestID(c),
		"subject":    result.SubjectID,
		"timestamp":  result.Timestamp,
		"type":       result.HairlineType,
	}).Info("Analysis recorded")

	return c.Status(fiber.StatusCreated).JSON(result)
}

func readUpload(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, errMissingImage
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}
