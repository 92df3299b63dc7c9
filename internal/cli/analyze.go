package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/imageio"
	"github.com/dudu/hairline/internal/pipeline"
	"github.com/dudu/hairline/internal/render"
)

var (
	analyzeShow    bool
	analyzeEnhance bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze the hairline in a photo",
	Long: `Analyze one frontal face photo and record the measurements for the subject.

The photo is checked for size and brightness, copied to input/raw_images,
analyzed, and the result JSON and an annotated visualization are written
under output/.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeShow, "show", false, "display the annotated result in a window")
	analyzeCmd.Flags().BoolVar(&analyzeEnhance, "enhance", false, "resize and contrast-enhance before analysis")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		subject := subjectFor(a, nil)
		cmd.Printf("Processing image: %s\n", args[0])

		result, err := a.analyzeFile(ctx, args[0], subject, analyzeOptions{
			saveInput: true,
			enhance:   analyzeEnhance,
			show:      analyzeShow,
		})
		if err != nil {
			return err
		}
		printResult(cmd, result)
		return nil
	})
}

// analyzeOptions selects the side effects of an analysis
type analyzeOptions struct {
	// saveInput copies the photo into input/raw_images
	saveInput bool
	// enhance analyzes the resized CLAHE-enhanced photo and archives it
	enhance bool
	// show opens a window with the visualization
	show bool
}

// analyzeFile loads and quality checks a photo, then analyzes it
func (a *app) analyzeFile(ctx context.Context, path, subject string, opts analyzeOptions) (*pipeline.Result, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	if q := a.enhancer.Validate(img); !q.OK {
		return nil, fmt.Errorf("image validation failed: %s", q.Reason)
	}

	if opts.saveInput {
		if _, err := a.archive.SaveInput(img, subject, ""); err != nil {
			return nil, err
		}
	}

	return a.analyzeImage(ctx, img, subject, filepath.Base(path), opts)
}

// analyzeImage runs the pipeline on img, records the snapshot and archives
// the result and its visualization.
func (a *app) analyzeImage(ctx context.Context, img gocv.Mat, subject, source string, opts analyzeOptions) (*pipeline.Result, error) {
	p, err := a.analyzer()
	if err != nil {
		return nil, err
	}

	input := img
	if opts.enhance {
		input = a.enhancer.Preprocess(img)
		defer input.Close()
		if _, err := a.archive.SaveProcessed(input, subject, "enhanced"); err != nil {
			return nil, err
		}
	}

	result, err := p.AnalyzeAndRecord(ctx, input, a.tracker, subject, "")
	if err != nil {
		if errors.Is(err, pipeline.ErrNoFaceDetected) {
			return nil, fmt.Errorf("%s: %w", source, errNoFace)
		}
		return nil, err
	}

	if _, err := a.archive.SaveResult(result, subject, result.Timestamp); err != nil {
		return nil, err
	}

	vis := render.Overlay(input, result)
	defer vis.Close()
	if _, err := a.archive.SaveVisualization(vis, subject, "analysis"); err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"subject":   subject,
		"source":    source,
		"timestamp": result.Timestamp,
		"type":      result.HairlineType,
	}).Info("analysis saved")

	if opts.show {
		showImage("Hairline Analysis Results", vis)
	}
	return result, nil
}

func printResult(cmd *cobra.Command, r *pipeline.Result) {
	cmd.Println("Analysis completed successfully!")
	for _, line := range render.Summary(r) {
		cmd.Printf("  %s\n", line)
	}
	if !r.Frontal {
		cmd.Println("  Note: the face does not look frontal, measurements may be skewed")
	}
}

// showImage displays img until a key is pressed
func showImage(title string, img gocv.Mat) {
	window := gocv.NewWindow(title)
	defer window.Close()
	window.IMShow(img)
	window.WaitKey(0)
}
