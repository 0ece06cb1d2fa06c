package synth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FixtureRule matches prompts by substring and yields a canned response.
type FixtureRule struct {
	Contains string `yaml:"contains"`
	Response string `yaml:"response"`
}

// FixtureFile is the on-disk YAML shape for a fixture synthesizer.
type FixtureFile struct {
	Rules   []FixtureRule `yaml:"rules"`
	Default string        `yaml:"default"`
}

// Fixture is a deterministic ContentSynthesizer double. Rules are evaluated
// in order; the first whose Contains substring appears in the prompt wins,
// falling back to Default. The same inputs always produce the same outputs,
// which is what makes pipeline reproducibility testable.
type Fixture struct {
	rules      []FixtureRule
	defaultRsp string

	mu    sync.Mutex
	calls []string
}

// NewFixture creates a Fixture from rules and a default response.
func NewFixture(rules []FixtureRule, defaultResponse string) *Fixture {
	return &Fixture{rules: rules, defaultRsp: defaultResponse}
}

// LoadFixture reads a fixture YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture file: %w", err)
	}
	var f FixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture file: %w", err)
	}
	return NewFixture(f.Rules, f.Default), nil
}

// Complete returns the canned response for the first matching rule.
func (f *Fixture) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()

	for _, rule := range f.rules {
		if rule.Contains != "" && strings.Contains(prompt, rule.Contains) {
			return rule.Response, nil
		}
	}
	if f.defaultRsp == "" {
		return "", fmt.Errorf("no fixture rule matched prompt")
	}
	return f.defaultRsp, nil
}

// Calls returns the prompts received so far, in order of arrival.
func (f *Fixture) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

