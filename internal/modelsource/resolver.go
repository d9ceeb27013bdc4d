package modelsource

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// multinetSubdir is the directory inside an esp-sr checkout that holds the
// multi-command recognition models.
const multinetSubdir = "multinet_model"

// fstName is the shared grapheme model required by Multinet 6/7.
const fstName = "fst"

// ErrNoModels reports that none of the requested model names resolved.
var ErrNoModels = errors.New("no multinet models resolved")

// Model is one resolved model directory.
type Model struct {
	Name string
	Path string
}

// Resolution is the outcome of resolving a set of requested model names.
type Resolution struct {
	// Models are the resolved model directories, in request order. The fst
	// supplement, when required and present, is appended last.
	Models []Model
	// Missing are requested names absent from the model directory.
	Missing []string
}

// Names returns the resolved model names in order.
func (r Resolution) Names() []string {
	names := make([]string, len(r.Models))
	for i, m := range r.Models {
		names[i] = m.Name
	}
	return names
}

// needsFST reports whether name is a Multinet 6 or 7 model, which cannot run
// without the shared fst model.
func needsFST(name string) bool {
	return strings.Contains(name, "mn6") || strings.Contains(name, "mn7")
}

// Resolve maps requested model names to directories under modelDir. Missing
// names are warned about and skipped; if nothing resolves the build cannot
// proceed and ErrNoModels is returned.
func Resolve(modelDir string, names []string, logger *slog.Logger) (Resolution, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var res Resolution
	fstRequired := false
	for _, name := range names {
		path := filepath.Join(modelDir, multinetSubdir, name)
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			logger.Warn("model directory not found, skipping",
				slog.String("model", name),
				slog.String("path", path))
			res.Missing = append(res.Missing, name)
			continue
		}
		res.Models = append(res.Models, Model{Name: name, Path: path})
		if needsFST(name) {
			fstRequired = true
		}
	}

	if len(res.Models) == 0 {
		return Resolution{}, fmt.Errorf("%w: looked under %s", ErrNoModels,
			filepath.Join(modelDir, multinetSubdir))
	}

	if fstRequired {
		fstPath := filepath.Join(modelDir, multinetSubdir, fstName)
		if info, err := os.Stat(fstPath); err == nil && info.IsDir() {
			res.Models = append(res.Models, Model{Name: fstName, Path: fstPath})
		} else {
			logger.Warn("fst model not found; Multinet 6/7 models may not work without it",
				slog.String("path", fstPath))
		}
	}
	return res, nil
}
