package shows

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"airlift/internal/pattern"
)

// PatternKind distinguishes where a file pattern is applied.
type PatternKind string

const (
	// KindWatch patterns participate in directory watching.
	KindWatch PatternKind = "watch"
	// KindFTP patterns are reserved for FTP-delivered files; they are parsed
	// and preserved but never matched by the directory watcher.
	KindFTP PatternKind = "ftp"
)

// FilePattern is one glob-style rule identifying filenames of interest.
type FilePattern struct {
	ID   string      `toml:"id"`
	Glob string      `toml:"glob"`
	Kind PatternKind `toml:"kind"`
}

// Processing holds per-show audio processing parameters. They are stored and
// surfaced for downstream tooling only; Airlift performs no signal processing.
type Processing struct {
	TrimSilence    bool    `toml:"trim_silence"`
	FadeInMs       int     `toml:"fade_in_ms"`
	FadeOutMs      int     `toml:"fade_out_ms"`
	NormalizeLUFS  float64 `toml:"normalize_lufs"`
	CompressPreset string  `toml:"compress_preset"`
}

// ShowProfile describes which files to watch for, where processed output goes,
// and how it is named. Read-only to the intake engine.
type ShowProfile struct {
	ID           string        `toml:"id"`
	Name         string        `toml:"name"`
	Enabled      bool          `toml:"enabled"`
	AutoProcess  bool          `toml:"auto_process"`
	WatchDir     string        `toml:"watch_dir"`
	OutputDir    string        `toml:"output_dir"`
	NameTemplate string        `toml:"name_template"`
	Patterns     []FilePattern `toml:"patterns"`
	Processing   Processing    `toml:"processing"`
}

// WatchGlobs returns the glob strings of watch-kind patterns in list order.
func (s *ShowProfile) WatchGlobs() []string {
	globs := make([]string, 0, len(s.Patterns))
	for _, p := range s.Patterns {
		if p.Kind == KindWatch {
			globs = append(globs, p.Glob)
		}
	}
	return globs
}

// FindWatchPattern returns the first watch-kind pattern matching filename, in
// list order. Malformed patterns are skipped.
func (s *ShowProfile) FindWatchPattern(filename string) (FilePattern, bool) {
	for _, p := range s.Patterns {
		if p.Kind != KindWatch {
			continue
		}
		ok, err := pattern.Matches(filename, p.Glob)
		if err != nil {
			continue
		}
		if ok {
			return p, true
		}
	}
	return FilePattern{}, false
}

// Watchable reports whether the show should have a directory watcher at all.
func (s *ShowProfile) Watchable() bool {
	return s.Enabled && s.AutoProcess && len(s.WatchGlobs()) > 0
}

// Source provides read-only access to show profiles.
type Source interface {
	GetAllShows() ([]ShowProfile, error)
	GetShow(id string) (ShowProfile, error)
}

// ErrShowNotFound is returned by GetShow for unknown identifiers.
var ErrShowNotFound = errors.New("show not found")

type showsFile struct {
	Shows []ShowProfile `toml:"shows"`
}

// FileSource reads show profiles from a TOML file. The file is re-read on
// every call so edits made by scheduling tools are picked up without a
// daemon restart.
type FileSource struct {
	path string
}

// NewFileSource constructs a show source backed by the given TOML file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// GetAllShows parses the shows file and returns every profile. A missing file
// yields an empty list, not an error.
func (f *FileSource) GetAllShows() ([]ShowProfile, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read shows file: %w", err)
	}

	var parsed showsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse shows file: %w", err)
	}

	seen := make(map[string]struct{}, len(parsed.Shows))
	for i := range parsed.Shows {
		show := &parsed.Shows[i]
		show.ID = strings.TrimSpace(show.ID)
		if show.ID == "" {
			return nil, fmt.Errorf("shows file: show %d has no id", i)
		}
		if _, dup := seen[show.ID]; dup {
			return nil, fmt.Errorf("shows file: duplicate show id %q", show.ID)
		}
		seen[show.ID] = struct{}{}
		if strings.TrimSpace(show.Name) == "" {
			show.Name = show.ID
		}
		for j := range show.Patterns {
			p := &show.Patterns[j]
			p.Glob = strings.TrimSpace(p.Glob)
			switch p.Kind {
			case KindWatch, KindFTP:
			case "":
				p.Kind = KindWatch
			default:
				return nil, fmt.Errorf("shows file: show %q pattern %q has unknown kind %q", show.ID, p.Glob, p.Kind)
			}
		}
	}
	return parsed.Shows, nil
}

// GetShow returns the profile with the given id or ErrShowNotFound.
func (f *FileSource) GetShow(id string) (ShowProfile, error) {
	all, err := f.GetAllShows()
	if err != nil {
		return ShowProfile{}, err
	}
	for _, show := range all {
		if show.ID == id {
			return show, nil
		}
	}
	return ShowProfile{}, fmt.Errorf("%w: %s", ErrShowNotFound, id)
}
