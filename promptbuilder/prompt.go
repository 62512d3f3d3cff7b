/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder constructs prompts from typed templates. Templates
// declare {{name}} placeholders up front; values are bound by name and
// Build fails if any placeholder is left unbound, so a malformed prompt is
// caught before it reaches the model.
package promptbuilder

import (
	"fmt"
	"maps"
)

// stringLiteral only accepts literal strings, keeping template text and
// developer-authored instructions out of runtime data paths.
type stringLiteral string

// Prompt represents a template with bindable placeholders.
type Prompt struct {
	template string
	bindings map[string]binding
}

// NewPrompt creates a new prompt from a template literal and parses bindings.
func NewPrompt(template stringLiteral) (*Prompt, error) {
	bindings := make(map[string]binding)

	// Walk the template once to collect placeholder names; the walk output
	// is discarded because placeholders stay in place until Build.
	tmpl, err := walkTemplate(string(template), func(name string) (string, error) {
		if _, exists := bindings[name]; !exists {
			bindings[name] = &unboundBinding{name: name}
		}
		return fmt.Sprintf("{{%s}}", name), nil
	})
	if err != nil {
		return nil, err
	}

	return &Prompt{
		template: tmpl,
		bindings: bindings,
	}, nil
}

// MustPrompt is NewPrompt for package-level template variables; it panics on
// a malformed template.
func MustPrompt(template stringLiteral) *Prompt {
	p, err := NewPrompt(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Bindings returns the names of all placeholders found in the template as a
// set. Useful for tests.
func (p *Prompt) Bindings() map[string]struct{} {
	names := make(map[string]struct{}, len(p.bindings))
	for name := range p.bindings {
		names[name] = struct{}{}
	}
	return names
}

// bind returns a copy of p with the named placeholder bound to b.
func (p *Prompt) bind(name string, b binding) (*Prompt, error) {
	if err := existsAndUnbound(p.bindings, name); err != nil {
		return nil, err
	}
	newPrompt := &Prompt{
		template: p.template,
		bindings: maps.Clone(p.bindings),
	}
	newPrompt.bindings[name] = b
	return newPrompt, nil
}

// BindString binds runtime text (document chunks, PR prose) to a placeholder.
// Returns a new Prompt with the binding applied.
func (p *Prompt) BindString(name, value string) (*Prompt, error) {
	return p.bind(name, &textBinding{val: value})
}

// BindInt binds an integer value (chunk index, word limit) to a placeholder.
// Returns a new Prompt with the binding applied.
func (p *Prompt) BindInt(name string, value int) (*Prompt, error) {
	return p.bind(name, &intBinding{val: value})
}

// BindJSON binds structured data to a placeholder by marshaling it as JSON.
// Returns a new Prompt with the binding applied.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	return p.bind(name, &jsonBinding{data: data})
}

// Build constructs the final prompt, returning an error if any bindings are
// unbound.
func (p *Prompt) Build() (string, error) {
	// Pre-compute all binding values to surface errors before substitution.
	values := make(map[string]string, len(p.bindings))
	for name, binding := range p.bindings {
		val, err := binding.value()
		if err != nil {
			return "", err
		}
		values[name] = val
	}

	return walkTemplate(p.template, func(name string) (string, error) {
		if val, exists := values[name]; exists {
			return val, nil
		}
		// Unreachable: NewPrompt and Build use the same walk.
		return "", fmt.Errorf("internal error: binding %q not found in values map", name)
	})
}
