package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/di"
	"github.com/mikey/phish-fusion/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		logger *zap.Logger,
		emailFilter ports.EmailFilter,
		classifier core.Classifier,
		store core.AgeStore,
	) error {
		defer logger.Sync()
		defer func() {
			if closer, ok := classifier.(interface{ Close() error }); ok {
				closer.Close()
			}
			if stopper, ok := store.(interface{ Stop() }); ok {
				stopper.Stop()
			}
		}()

		raw, err := readInput(flags.InputFile, logger)
		if err != nil {
			return err
		}

		_, err = emailFilter.ProcessMessage(context.Background(), raw)
		return err
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// readInput reads the message from path, or from stdin when path is empty
func readInput(path string, logger *zap.Logger) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		r = file
		logger.Info("Reading email from file", zap.String("file", path))
	} else {
		logger.Info("Reading email from stdin")
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read email: %w", err)
	}
	return raw, nil
}
