package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Version is the current manifest schema version.
const Version = 1

const (
	// DefaultDurationMS is the default command detection window.
	DefaultDurationMS = 3000
	// DefaultThreshold is the default detection threshold.
	DefaultThreshold = 0.2
	// actionWake marks a command entry as a wake trigger.
	actionWake = "wake"
)

// Command is one runtime voice command.
type Command struct {
	Command string `json:"command"`
	Text    string `json:"text"`
	Action  string `json:"action"`
}

// Multinet describes the bundled multi-command recognition models.
type Multinet struct {
	Languages  []string             `json:"languages"`
	DurationMS int                  `json:"duration_ms"`
	Threshold  float64              `json:"threshold"`
	Commands   map[string][]Command `json:"commands,omitempty"`
}

// Manifest is the index.json document. Consumers treat absent keys as unset,
// never as zero values.
type Manifest struct {
	Version  int       `json:"version"`
	SRModels string    `json:"srmodels,omitempty"`
	Multinet *Multinet `json:"multinet_model,omitempty"`
}

// Params are the inputs the generator derives a manifest from.
type Params struct {
	// ModelNames are the multinet model directory names that were bundled.
	ModelNames []string
	// SRModels is the container filename inside the bundle, empty if none.
	SRModels string
	// WakePhrases maps a language tag to its wake phrase. Empty or
	// whitespace-only phrases are treated as unset.
	WakePhrases map[string]string
	// Threshold is the detection threshold, written as supplied. Callers
	// resolve defaults; an explicit zero is a valid value.
	Threshold float64
	// DurationMS is the detection window; zero means DefaultDurationMS.
	DurationMS int
}

// Generate builds a manifest from the supplied parameters. It is a pure
// function of its inputs: the same parameters always yield the same document.
func Generate(p Params) Manifest {
	m := Manifest{Version: Version, SRModels: p.SRModels}

	languages := DetectLanguages(p.ModelNames)
	if len(languages) == 0 {
		return m
	}

	duration := p.DurationMS
	if duration == 0 {
		duration = DefaultDurationMS
	}

	mn := &Multinet{
		Languages:  languages,
		DurationMS: duration,
		Threshold:  p.Threshold,
	}
	for _, lang := range languages {
		phrase := strings.TrimSpace(p.WakePhrases[lang])
		if phrase == "" {
			continue
		}
		if mn.Commands == nil {
			mn.Commands = make(map[string][]Command)
		}
		mn.Commands[lang] = []Command{{Command: phrase, Text: phrase, Action: actionWake}}
	}
	m.Multinet = mn
	return m
}

// Write serializes the manifest as indented JSON into dir under name and
// returns the written path.
func Write(m Manifest, dir, name string) (string, error) {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest %s: %w", path, err)
	}
	return path, nil
}
