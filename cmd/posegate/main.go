// Command posegate enrolls and verifies users by password and by face,
// capturing each face sample only once the head holds the requested pose.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/spf13/cobra"

	"github.com/MrCodeEU/posegate/pkg/config"
	"github.com/MrCodeEU/posegate/pkg/logging"
)

const version = "0.1.0"

// errReported marks a failure that was already printed to the user.
var errReported = errors.New("reported")

var (
	cfg *config.Config

	rootCmd = &cli.Command{
		Use:               "posegate",
		Short:             "Pose-gated face and password authentication",
		Long:              "PoseGate registers users with a password and five face poses, and logs them in with a password and a frontal face capture.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
}

// setup loads the configuration and initializes logging for every command.
func setup(cmd *cli.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	c, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	if debug {
		c.Logging.Level = "debug"
	}
	if err := logging.Init(loggingOptions(c.Logging)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Debugf("PoseGate v%s starting", version)
	logging.Debugf("Config loaded, storage backend: %s", c.Storage.Backend)

	cfg = c
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	var (
		c   *config.Config
		err error
	)
	if path != "" {
		c, err = config.Load(path)
	} else {
		c, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	c.ExpandPaths()
	return c, nil
}

func loggingOptions(l config.LoggingConfig) logging.Options {
	return logging.Options{
		Level:      l.Level,
		Format:     l.Format,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			logging.WithError(err).Debug("Command failed")
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
