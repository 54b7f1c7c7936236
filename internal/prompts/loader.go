// Package prompts holds the model prompt templates used by the ranking
// stages, embedded at compile time and keyed by file and prompt name.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// The embedded files never change at runtime, so they are parsed exactly
// once on first access.
var (
	loadOnce sync.Once
	library  map[string]map[string]string
	loadErr  error
)

func load() {
	library = make(map[string]map[string]string)

	entries, err := promptFiles.ReadDir(".")
	if err != nil {
		loadErr = fmt.Errorf("failed to read embedded prompts: %w", err)
		return
	}
	for _, entry := range entries {
		data, err := promptFiles.ReadFile(entry.Name())
		if err != nil {
			loadErr = fmt.Errorf("failed to read prompt file %s: %w", entry.Name(), err)
			return
		}
		var byKey map[string]string
		if err := json.Unmarshal(data, &byKey); err != nil {
			loadErr = fmt.Errorf("failed to parse prompt file %s: %w", entry.Name(), err)
			return
		}
		library[entry.Name()] = byKey
	}
}

// Get retrieves a prompt template by filename and key. The filename is the
// bare embedded name, e.g. "scoring.json".
func Get(filename, key string) (string, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return "", loadErr
	}

	byKey, ok := library[filename]
	if !ok {
		return "", fmt.Errorf("prompt file %q not found", filename)
	}
	prompt, ok := byKey[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts the pipeline cannot run without.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format replaces {{.Key}} placeholders in a template with values from data.
// Placeholders without a matching key are left verbatim.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}
