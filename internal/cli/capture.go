package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudu/hairline/internal/camera"
	"github.com/dudu/hairline/internal/progress"
	"github.com/dudu/hairline/internal/ui"
)

var captureDevice int

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take a photo with the webcam and analyze it",
	Long: `Open the webcam preview. Press SPACE to capture, ESC to cancel.

The captured photo is saved to input/raw_images and analyzed immediately.`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().IntVar(&captureDevice, "device", -1, "camera device index (default from config)")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		subject := subjectFor(a, nil)

		device := a.cfg.Camera.Device
		if captureDevice >= 0 {
			device = captureDevice
		}

		cam, err := camera.Open(device, a.cfg.Camera.Width, a.cfg.Camera.Height, a.cfg.Camera.FPS)
		if err != nil {
			return fmt.Errorf("cannot access webcam: %w", err)
		}
		defer cam.Close()
		cmd.Printf("Camera opened: %dx%d\n", cam.Width(), cam.Height())

		window := ui.NewWindow("Hairline Capture", cam.Width(), cam.Height())
		defer window.Close()

		frame, err := camera.Grab(ctx, cam, window)
		defer frame.Close()
		if errors.Is(err, camera.ErrCanceled) {
			cmd.Println("Capture cancelled")
			return nil
		}
		if err != nil {
			return err
		}

		name := fmt.Sprintf("%s_webcam_%s.jpg", subject, progress.Timestamp(a.now()))
		path, err := a.archive.SaveInput(frame, subject, name)
		if err != nil {
			return err
		}
		cmd.Printf("Photo saved: %s\n", path)

		cmd.Println("Analyzing hairline...")
		result, err := a.analyzeImage(ctx, frame, subject, name, analyzeOptions{show: true})
		if err != nil {
			return err
		}
		printResult(cmd, result)
		return nil
	})
}
