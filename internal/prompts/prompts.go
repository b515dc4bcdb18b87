// Package prompts provides the system prompts for LLM calls, with compiled
// defaults, an optional on-disk override pack, and hot reload.
package prompts

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Prompt names used by the core.
const (
	TaskExtraction      = "task_extraction"
	OperationGeneration = "operation_generation"
)

// TaskExtractionPrompt instructs the model to split a user request into
// executable tasks with dependencies.
const TaskExtractionPrompt = `You turn a user's request into a list of executable data operations.

Return ONLY a JSON array. Each element:
  {
    "description": "what this task does, one sentence",
    "kind": "read" or "write",
    "target_pipeline": "read" or "write",
    "dependencies": ["task_0", ...]
  }

Rules:
- "read" fetches data, "write" creates or modifies it.
- Number tasks implicitly by position: the first element is task_0.
- A dependency must reference an earlier element of THIS array.
- Prefer fewer, coarser tasks. Do not invent work the user did not ask for.
- If the request is a single operation, return a one-element array.`

// OperationGenerationPrompt instructs the model to produce an operation
// template with placeholders for resolved parameters.
const OperationGenerationPrompt = `You generate one operation against the business API for the given task.

Return ONLY the operation string. Reference parameters as {{name}} placeholders;
they will be substituted from resolved context afterwards. Use exactly the
parameter names provided. Do not inline literal values for parameters that
have placeholders available.`

// defaults maps prompt names to their compiled-in text.
var defaults = map[string]string{
	TaskExtraction:      TaskExtractionPrompt,
	OperationGeneration: OperationGenerationPrompt,
}

// Library serves prompts with an ordered fallback: on-disk override pack
// first, compiled defaults second. Which tier served is logged once per
// prompt load.
type Library struct {
	mu        sync.RWMutex
	packPath  string
	overrides map[string]string
}

// NewLibrary creates a library. packPath may be empty for defaults-only
// operation; if the file exists it is loaded immediately.
func NewLibrary(packPath string) *Library {
	l := &Library{packPath: packPath, overrides: map[string]string{}}
	if packPath != "" {
		if err := l.Reload(); err != nil {
			log.Printf("[prompts] override pack %s not loaded: %v", packPath, err)
		}
	}
	return l
}

// Get returns the prompt text for name, falling back tier by tier.
func (l *Library) Get(name string) string {
	l.mu.RLock()
	text, ok := l.overrides[name]
	l.mu.RUnlock()
	if ok {
		log.Printf("[prompts] %s served from override pack", name)
		return text
	}
	if text, ok := defaults[name]; ok {
		return text
	}
	log.Printf("[prompts] unknown prompt %s, serving empty", name)
	return ""
}

// Reload re-reads the override pack from disk.
func (l *Library) Reload() error {
	if l.packPath == "" {
		return nil
	}
	data, err := os.ReadFile(l.packPath)
	if err != nil {
		return fmt.Errorf("read prompt pack: %w", err)
	}
	var pack map[string]string
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return fmt.Errorf("parse prompt pack: %w", err)
	}

	l.mu.Lock()
	l.overrides = pack
	l.mu.Unlock()
	log.Printf("[prompts] loaded %d overrides from %s", len(pack), l.packPath)
	return nil
}
