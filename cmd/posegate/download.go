package main

import (
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	cli "github.com/spf13/cobra"

	"github.com/MrCodeEU/posegate/pkg/logging"
	"github.com/MrCodeEU/posegate/pkg/recognition"
)

const modelBaseURL = "http://dlib.net/files/"

// model is a dlib model file published as a bzip2 archive.
type model struct {
	Name string
	URL  string
}

func dlibModels(baseURL string) []model {
	names := []string{
		recognition.ShapePredictorModel,
		recognition.ResNetModel,
		recognition.CNNDetectorModel,
	}
	models := make([]model, 0, len(names))
	for _, name := range names {
		models = append(models, model{Name: name, URL: baseURL + name + ".bz2"})
	}
	return models
}

var downloadCmd = &cli.Command{
	Use:   "download-models [dir]",
	Short: "Download the dlib face models",
	Args:  cli.MaximumNArgs(1),
	RunE: func(cmd *cli.Command, args []string) error {
		modelDir := cfg.Recognition.ModelPath
		if len(args) > 0 {
			modelDir = args[0]
		}
		client := &http.Client{Timeout: 10 * time.Minute}
		return downloadModels(cmd.Context(), client, modelDir, dlibModels(modelBaseURL))
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

// downloadModels fetches every model missing from modelDir.
func downloadModels(ctx context.Context, client *http.Client, modelDir string, models []model) error {
	logging.Infof("Downloading models to: %s", modelDir)

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	for _, m := range models {
		targetPath := filepath.Join(modelDir, m.Name)
		if _, err := os.Stat(targetPath); err == nil {
			logging.Infof("Model %s already exists, skipping", m.Name)
			continue
		}

		logging.Infof("Downloading %s...", m.Name)
		if err := downloadAndExtract(ctx, client, m.URL, targetPath); err != nil {
			return fmt.Errorf("failed to download %s: %w", m.Name, err)
		}
		logging.Infof("Successfully downloaded %s", m.Name)
	}

	logging.Info("All models downloaded successfully!")
	return nil
}

// downloadAndExtract decompresses url into targetPath. A partial download
// never appears under targetPath.
func downloadAndExtract(ctx context.Context, client *http.Client, url, targetPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.CreateTemp(filepath.Dir(targetPath), ".download-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := out.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(out, bzip2.NewReader(resp.Body)); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, targetPath)
}
