package relocate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"airlift/internal/config"
	"airlift/internal/fileutil"
	"airlift/internal/services"
	"airlift/internal/shows"
)

const maxConflictAttempts = 1000

// Result reports the outcome of a successful relocation.
type Result struct {
	OutputPath       string
	BytesProcessed   int64
	ConflictResolved bool
}

// Relocator validates detected files and copies them to a show's output
// directory under the show's naming rules.
type Relocator struct {
	allowed          map[string]struct{}
	defaultOutputDir string
	now              func() time.Time
}

// New builds a Relocator from the intake configuration.
func New(cfg *config.Config) *Relocator {
	allowed := make(map[string]struct{}, len(cfg.Intake.AllowedExtensions))
	for _, ext := range cfg.Intake.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &Relocator{
		allowed:          allowed,
		defaultOutputDir: cfg.Paths.DefaultOutputDir,
		now:              time.Now,
	}
}

// Relocate copies sourcePath into the show's output location. The source is
// left untouched; destinations are never overwritten, conflicts get a
// numeric suffix instead.
func (r *Relocator) Relocate(ctx context.Context, sourcePath string, show shows.ShowProfile) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filename := filepath.Base(sourcePath)
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := r.allowed[ext]; !ok {
		return nil, services.Wrap(services.ErrUnsupportedExtension, "relocate", "validate",
			fmt.Sprintf("extension %q is not allowed", ext), nil)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrSourceNotFound, "relocate", "validate", sourcePath, nil)
		}
		return nil, services.Wrap(services.ErrUnknownProcessing, "relocate", "stat source", sourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, services.Wrap(services.ErrSourceNotFound, "relocate", "validate",
			fmt.Sprintf("%s is not a regular file", sourcePath), nil)
	}

	outputDir := show.OutputDir
	if strings.TrimSpace(outputDir) == "" {
		outputDir = r.defaultOutputDir
	}

	relative := renderRelativePath(show.NameTemplate, show.Name, filename, r.now())
	if !strings.EqualFold(filepath.Ext(relative), ext) {
		relative += ext
	}

	target := filepath.Join(outputDir, filepath.FromSlash(relative))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, services.Wrap(services.ErrUnknownProcessing, "relocate", "create output directory",
			filepath.Dir(target), err)
	}

	target, conflictResolved, err := resolveConflicts(target)
	if err != nil {
		return nil, err
	}

	bytes, err := fileutil.CopyFileVerified(sourcePath, target)
	if err != nil {
		return nil, services.Wrap(services.ErrUnknownProcessing, "relocate", "copy",
			fmt.Sprintf("%s -> %s", sourcePath, target), err)
	}

	return &Result{
		OutputPath:       target,
		BytesProcessed:   bytes,
		ConflictResolved: conflictResolved,
	}, nil
}

// resolveConflicts finds the first destination path that does not exist yet,
// appending _1, _2, ... before the extension when needed.
func resolveConflicts(target string) (string, bool, error) {
	if !pathExists(target) {
		return target, false, nil
	}

	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		if !pathExists(candidate) {
			return candidate, true, nil
		}
	}
	return "", false, services.Wrap(services.ErrTooManyConflicts, "relocate", "resolve destination",
		fmt.Sprintf("gave up after %d attempts for %s", maxConflictAttempts, target), nil)
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
