package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileProber checks that a locator naming a local file can be opened for
// reading. It covers rows that are still indexed after the file was deleted.
type FileProber struct{}

// Probe opens and immediately closes the file behind locator
func (FileProber) Probe(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := strings.TrimPrefix(locator, "file://")
	if path == "" {
		return fmt.Errorf("empty locator")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("locator is a directory: %s", path)
	}
	return nil
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, locator string) error

// Probe calls f
func (f ProberFunc) Probe(ctx context.Context, locator string) error {
	return f(ctx, locator)
}
