// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package storedquery implements the .cosq stored query file format: YAML
// front matter between "---" delimiters followed by a SQL body, with typed
// parameter definitions and optional multi-step pipelines whose per-step
// bodies are split on "-- step: <name>" delimiter lines.
//
// Example:
//
//	---
//	description: Find users who signed up recently
//	database: mydb
//	container: users
//	params:
//	  - name: days
//	    type: number
//	    default: 30
//	---
//	SELECT c.id, c.email FROM c
//	WHERE c.createdAt >= DateTimeAdd("dd", -@days, GetCurrentDateTime())
package storedquery

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Errors reported while parsing .cosq files.
var (
	ErrMissingFrontMatter = errors.New("invalid query file: missing front matter delimiters (---)")
	ErrEmptyQuery         = errors.New("query file has no SQL body")
)

// StepDef names one sub-query of a multi-step stored query and the container
// it runs against. Step names are fixed at authoring time.
type StepDef struct {
	Name      string `yaml:"name"`
	Container string `yaml:"container"`
}

// Metadata is the YAML front matter of a stored query.
type Metadata struct {
	// Description of what the query does.
	Description string `yaml:"description"`
	// Database overrides the configured default database.
	Database string `yaml:"database,omitempty"`
	// Container overrides the configured default container (single-step only).
	Container string `yaml:"container,omitempty"`
	// Params declares the query's parameters.
	Params []ParamDef `yaml:"params,omitempty"`
	// Steps declares a multi-step pipeline; each step's SQL body follows a
	// "-- step: <name>" delimiter line in the query body.
	Steps []StepDef `yaml:"steps,omitempty"`
	// Template is an inline output template (Go text/template).
	Template string `yaml:"template,omitempty"`
	// TemplateFile is a path to an external template file.
	TemplateFile string `yaml:"template_file,omitempty"`
}

// StoredQuery is a fully parsed .cosq file.
type StoredQuery struct {
	// Name is the file name without the .cosq extension.
	Name     string
	Metadata Metadata
	// SQL is the whole query body. For multi-step queries the per-step
	// bodies live in StepSQL instead.
	SQL string
	// StepSQL maps step name to that step's SQL body.
	StepSQL map[string]string
}

// IsPipeline reports whether the query declares multiple steps.
func (q *StoredQuery) IsPipeline() bool {
	return len(q.Metadata.Steps) > 0
}

// stepDelimiter matches "-- step: <name>" lines that open a step body.
var stepDelimiter = regexp.MustCompile(`^--\s*step:\s*(\S+)\s*$`)

// Parse parses a .cosq file from its contents.
func Parse(name, contents string) (*StoredQuery, error) {
	meta, body, err := splitFrontMatter(contents)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyQuery
	}

	q := &StoredQuery{Name: name, Metadata: meta, SQL: body}
	if q.IsPipeline() {
		stepSQL, err := splitSteps(body, meta.Steps)
		if err != nil {
			return nil, err
		}
		q.StepSQL = stepSQL
	}
	return q, nil
}

// splitFrontMatter separates the YAML front matter from the SQL body.
func splitFrontMatter(contents string) (Metadata, string, error) {
	var meta Metadata

	trimmed := strings.TrimLeft(contents, " \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return meta, "", ErrMissingFrontMatter
	}

	afterFirst := trimmed[3:]
	closing := strings.Index(afterFirst, "\n---")
	if closing < 0 {
		return meta, "", ErrMissingFrontMatter
	}

	yamlStr := afterFirst[:closing]
	rest := afterFirst[closing+len("\n---"):]

	if err := yaml.Unmarshal([]byte(yamlStr), &meta); err != nil {
		return meta, "", fmt.Errorf("failed to parse query metadata: %w", err)
	}
	return meta, rest, nil
}

// splitSteps carves the query body into per-step SQL bodies. Every declared
// step must have a body, and every delimiter must name a declared step.
func splitSteps(body string, steps []StepDef) (map[string]string, error) {
	declared := make(map[string]bool, len(steps))
	for _, s := range steps {
		declared[s.Name] = true
	}

	stepSQL := make(map[string]string, len(steps))
	current := ""
	var buf strings.Builder

	flush := func() {
		if current != "" {
			stepSQL[current] = strings.TrimSpace(buf.String())
		}
		buf.Reset()
	}

	for _, line := range strings.Split(body, "\n") {
		if m := stepDelimiter.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			name := m[1]
			if !declared[name] {
				return nil, fmt.Errorf("query body has a step %q that is not declared in metadata", name)
			}
			if _, dup := stepSQL[name]; dup || name == current {
				return nil, fmt.Errorf("duplicate step body %q", name)
			}
			flush()
			current = name
			continue
		}
		if current != "" {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	flush()

	for _, s := range steps {
		if sql, ok := stepSQL[s.Name]; !ok || sql == "" {
			return nil, fmt.Errorf("step %q has no SQL body", s.Name)
		}
	}
	return stepSQL, nil
}
