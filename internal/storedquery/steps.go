// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package storedquery

import (
	"fmt"
	"regexp"
	"strings"
)

// stepRefPattern matches @<step>.<field> tokens. Plain @param references
// never match because they lack the dotted field part.
var stepRefPattern = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)`)

// StepReference is one @step.field token found in a step's SQL.
type StepReference struct {
	Step  string
	Field string
}

// FindStepReferences extracts every @<step>.<field> reference in sql whose
// step part names a known step. Matches are deduplicated and returned in
// order of first appearance. A parameter sharing a prefix with a step name is
// only treated as a step reference when the token is exactly the step name
// followed by a dotted field.
func FindStepReferences(sql string, knownSteps []string) []StepReference {
	known := make(map[string]bool, len(knownSteps))
	for _, name := range knownSteps {
		known[name] = true
	}

	var refs []StepReference
	seen := make(map[StepReference]bool)
	for _, m := range stepRefPattern.FindAllStringSubmatch(sql, -1) {
		ref := StepReference{Step: m[1], Field: m[2]}
		if !known[ref.Step] || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// CycleError reports a dependency cycle between pipeline steps. It is raised
// while planning, before any step executes.
type CycleError struct {
	Steps []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic dependency between steps: %s", strings.Join(e.Steps, ", "))
}

// ExecutionLayers computes the topological layering of a pipeline. Each layer
// holds the steps (in declaration order) whose dependencies are all satisfied
// by earlier layers, so every step in one layer may run concurrently. Returns
// a CycleError naming the implicated steps when no layering exists.
func (q *StoredQuery) ExecutionLayers() ([][]string, error) {
	names := make([]string, 0, len(q.Metadata.Steps))
	for _, s := range q.Metadata.Steps {
		names = append(names, s.Name)
	}

	// Flat name-keyed dependency sets; cycle detection is a pure peel loop.
	deps := make(map[string]map[string]bool, len(names))
	for _, name := range names {
		set := make(map[string]bool)
		for _, ref := range FindStepReferences(q.StepSQL[name], names) {
			if ref.Step != name {
				set[ref.Step] = true
			} else {
				// A step referencing itself can never be scheduled.
				set[name] = true
			}
		}
		deps[name] = set
	}

	scheduled := make(map[string]bool, len(names))
	var layers [][]string

	for len(scheduled) < len(names) {
		var layer []string
		for _, name := range names {
			if scheduled[name] {
				continue
			}
			ready := true
			for dep := range deps[name] {
				if !scheduled[dep] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, name)
			}
		}

		if len(layer) == 0 {
			var remaining []string
			for _, name := range names {
				if !scheduled[name] {
					remaining = append(remaining, name)
				}
			}
			return nil, &CycleError{Steps: remaining}
		}

		for _, name := range layer {
			scheduled[name] = true
		}
		layers = append(layers, layer)
	}

	return layers, nil
}
