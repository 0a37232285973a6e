package main

import (
	"fmt"
	"io"

	"github.com/MrCodeEU/posegate/pkg/auth"
	"github.com/MrCodeEU/posegate/pkg/camera/opencv"
	"github.com/MrCodeEU/posegate/pkg/capture"
	"github.com/MrCodeEU/posegate/pkg/config"
	"github.com/MrCodeEU/posegate/pkg/credential"
	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/MrCodeEU/posegate/pkg/recognition"
	"github.com/MrCodeEU/posegate/pkg/storage"
)

const windowTitle = "PoseGate"

// app holds the long-lived collaborators of a command.
type app struct {
	store      storage.Repository
	recognizer *recognition.Recognizer
	service    *auth.Service
}

// newApp opens the record store, loads the models and wires the capture
// loop. Progress lines are written to out.
func newApp(c *config.Config, out io.Writer) (*app, error) {
	if err := c.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	store, err := storage.Open(c.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	rec := recognition.NewRecognizer()
	if err := rec.LoadModels(c.Recognition.ModelPath); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w (run 'posegate download-models' first)", err)
	}

	loop := capture.NewLoop(opencv.Devices{
		Device: c.Camera.Device,
		Width:  c.Camera.Width,
		Height: c.Camera.Height,
		OpenDetectorF: func() (capture.Detector, error) {
			return rec.Detector(), nil
		},
	}, captureOptions(c.Capture))
	if c.Camera.ShowPreview {
		loop.SetDisplay(func() (capture.Display, error) {
			return opencv.NewWindow(windowTitle), nil
		})
	}

	svc := auth.NewService(store, credential.New(), loop, rec, auth.Options{
		Tolerance: c.Recognition.Tolerance,
		Progress:  progressPrinter(out),
	})

	return &app{store: store, recognizer: rec, service: svc}, nil
}

// openStore is used by commands that never touch the camera.
func openStore(c *config.Config) (storage.Repository, error) {
	if err := c.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return storage.Open(c.Storage)
}

func (a *app) Close() {
	_ = a.recognizer.Close()
	_ = a.store.Close()
}

func captureOptions(c config.CaptureConfig) capture.Options {
	return capture.Options{
		Timeout: c.Timeout,
		Thresholds: pose.Thresholds{
			Yaw:   c.YawThreshold,
			Pitch: c.PitchThreshold,
		},
	}
}

// progressPrinter tells the user which pose to hold next.
func progressPrinter(out io.Writer) auth.ProgressFunc {
	return func(step, total int, target pose.Pose) {
		fmt.Fprintf(out, "[%d/%d] %s...\n", step, total, target.Instruction())
	}
}
