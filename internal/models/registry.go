// Package models resolves whisper model names to local ggml files and
// downloads missing ones from their canonical Hugging Face location.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownModel is returned for names that are neither registered nor paths.
var ErrUnknownModel = errors.New("models: unknown model")

const baseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Model describes a downloadable whisper ggml model.
type Model struct {
	Name     string
	FileName string
	SHA256   string // empty when no checksum is pinned
	// Multilingual models detect language and can translate into English.
	Multilingual bool
	// Translates is false for models trained without the translate task.
	Translates bool
	SizeMB     int
}

// URL returns the canonical download location.
func (m Model) URL() string {
	return baseURL + m.FileName
}

var registry = map[string]Model{
	"tiny": {
		Name: "tiny", FileName: "ggml-tiny.bin", SizeMB: 75,
		SHA256:       "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
		Multilingual: true, Translates: true,
	},
	"base": {
		Name: "base", FileName: "ggml-base.bin", SizeMB: 142,
		SHA256:       "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
		Multilingual: true, Translates: true,
	},
	"base.en": {
		Name: "base.en", FileName: "ggml-base.en.bin", SizeMB: 142,
	},
	"small": {
		Name: "small", FileName: "ggml-small.bin", SizeMB: 466,
		SHA256:       "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
		Multilingual: true, Translates: true,
	},
	"medium": {
		Name: "medium", FileName: "ggml-medium.bin", SizeMB: 1500,
		SHA256:       "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
		Multilingual: true, Translates: true,
	},
	"large-v3": {
		Name: "large-v3", FileName: "ggml-large-v3.bin", SizeMB: 2900,
		SHA256:       "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
		Multilingual: true, Translates: true,
	},
	"large-v3-turbo": {
		Name: "large-v3-turbo", FileName: "ggml-large-v3-turbo.bin", SizeMB: 1500,
		Multilingual: true,
	},
}

// Names returns all registered model names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered model with the given name.
func Lookup(name string) (Model, bool) {
	m, ok := registry[name]
	return m, ok
}

// Resolved is a model reference mapped onto the filesystem.
type Resolved struct {
	Model
	Path          string
	NeedsDownload bool
	IsCustomPath  bool
}

// Resolve maps a model name or file path to a local file. Registered names
// resolve to <dir>/<file name>; anything that looks like a path must exist.
func Resolve(ref, dir string) (Resolved, error) {
	ref = strings.TrimSpace(ref)

	if m, ok := Lookup(ref); ok {
		if strings.TrimSpace(dir) == "" {
			return Resolved{}, errors.New("models: directory must not be empty for named model")
		}
		path := filepath.Join(dir, m.FileName)
		info, err := os.Stat(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Resolved{}, fmt.Errorf("models: stat %s: %w", path, err)
		}
		return Resolved{
			Model:         m,
			Path:          path,
			NeedsDownload: err != nil || info.Size() == 0,
		}, nil
	}

	if !looksLikePath(ref) {
		return Resolved{}, fmt.Errorf("%w %q (known models: %s)", ErrUnknownModel, ref, strings.Join(Names(), ", "))
	}

	path := filepath.Clean(ref)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Resolved{}, fmt.Errorf("models: custom model path does not exist: %s", path)
		}
		return Resolved{}, fmt.Errorf("models: stat custom model path: %w", err)
	}

	// Custom files are trusted to support whatever the user asks of them.
	return Resolved{
		Model: Model{
			Name:         filepath.Base(path),
			FileName:     filepath.Base(path),
			Multilingual: true,
			Translates:   true,
		},
		Path:         path,
		IsCustomPath: true,
	}, nil
}

func looksLikePath(ref string) bool {
	return strings.ContainsRune(ref, os.PathSeparator) || strings.HasSuffix(strings.ToLower(ref), ".bin")
}
