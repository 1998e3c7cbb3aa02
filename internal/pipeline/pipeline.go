// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pipeline executes multi-step stored queries. Steps are layered by
// their @step.field dependencies and run layer by layer: steps within a layer
// run concurrently, and a step's bind parameters are completed with first-row
// field values from the steps it depends on.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cosq/cli/internal/cosmos"
	"cosq/cli/internal/storedquery"

	"golang.org/x/sync/errgroup"
)

// Executor runs one SQL query against one container. *cosmos.Client
// implements it; tests substitute fakes.
type Executor interface {
	Query(ctx context.Context, database, container, sql string, params []cosmos.QueryParam) (*cosmos.QueryResult, error)
}

// Result holds every step's documents keyed by step name, plus the request
// charge summed across all steps, ranges and pages.
type Result struct {
	StepResults map[string][]any
	TotalCharge float64
}

// StepError wraps a failure with the name of the step it occurred in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// NoRowsError reports a dependency step whose result set was empty, so a
// @step.field reference cannot be resolved.
type NoRowsError struct {
	Step  string
	Field string
}

func (e *NoRowsError) Error() string {
	return fmt.Sprintf("step %q returned no results, cannot resolve @%s.%s", e.Step, e.Step, e.Field)
}

// FieldNotFoundError reports a @step.field reference whose field is absent
// from the dependency's first document.
type FieldNotFoundError struct {
	Step      string
	Field     string
	Available []string
}

func (e *FieldNotFoundError) Error() string {
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("field %q not found in step %q result. Available fields: %s", e.Field, e.Step, available)
}

// Runner schedules and executes pipeline steps.
type Runner struct {
	exec    Executor
	onStart func(step, container string)
}

// Option configures a Runner.
type Option func(*Runner)

// WithStepStart registers a callback invoked as each step is dispatched,
// used by the CLI for progress output.
func WithStepStart(fn func(step, container string)) Option {
	return func(r *Runner) { r.onStart = fn }
}

// New creates a Runner that executes steps through exec.
func New(exec Executor, opts ...Option) *Runner {
	r := &Runner{exec: exec}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a multi-step stored query against database. topParams is the
// already-resolved top-level parameter set; every step also receives the
// first-row field values of the steps it references. A planning failure
// (cycle) is returned before any step executes, and any step failure aborts
// the pipeline without running later layers.
func (r *Runner) Run(ctx context.Context, database string, q *storedquery.StoredQuery, topParams map[string]any) (*Result, error) {
	if !q.IsPipeline() {
		return nil, fmt.Errorf("stored query %q is not a multi-step query", q.Name)
	}

	layers, err := q.ExecutionLayers()
	if err != nil {
		return nil, err
	}

	containers := make(map[string]string, len(q.Metadata.Steps))
	for _, s := range q.Metadata.Steps {
		containers[s.Name] = s.Container
	}

	result := &Result{StepResults: make(map[string][]any, len(q.Metadata.Steps))}

	for _, layer := range layers {
		slog.Debug("executing pipeline layer", "steps", layer)

		if len(layer) == 1 {
			// No dispatch overhead for a single-step layer.
			name := layer[0]
			docs, charge, err := r.runStep(ctx, database, name, containers[name], q, topParams, result.StepResults)
			if err != nil {
				return nil, err
			}
			result.StepResults[name] = docs
			result.TotalCharge += charge
			continue
		}

		// Spawn all, join all. Each task writes only its own slot; the
		// shared step-result store is merged after the whole layer joins.
		type stepOutcome struct {
			docs   []any
			charge float64
		}
		outcomes := make([]stepOutcome, len(layer))

		g, gCtx := errgroup.WithContext(ctx)
		for i, name := range layer {
			g.Go(func() error {
				docs, charge, err := r.runStep(gCtx, database, name, containers[name], q, topParams, result.StepResults)
				if err != nil {
					return err
				}
				outcomes[i] = stepOutcome{docs: docs, charge: charge}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, name := range layer {
			result.StepResults[name] = outcomes[i].docs
			result.TotalCharge += outcomes[i].charge
		}
	}

	return result, nil
}

// runStep binds parameters for one step and executes it.
func (r *Runner) runStep(ctx context.Context, database, name, container string, q *storedquery.StoredQuery, topParams map[string]any, stepResults map[string][]any) ([]any, float64, error) {
	sql := q.StepSQL[name]

	params, err := buildStepParams(sql, q, topParams, stepResults)
	if err != nil {
		return nil, 0, &StepError{Step: name, Err: err}
	}

	if r.onStart != nil {
		r.onStart(name, container)
	}

	res, err := r.exec.Query(ctx, database, container, sql, params)
	if err != nil {
		return nil, 0, &StepError{Step: name, Err: err}
	}
	return res.Documents, res.RequestCharge, nil
}

// buildStepParams builds the wire parameters for one step: the resolved
// top-level parameters plus, for every @depStep.field reference, the field's
// value from the first document of that dependency's result, bound under the
// literal dotted token.
func buildStepParams(sql string, q *storedquery.StoredQuery, topParams map[string]any, stepResults map[string][]any) ([]cosmos.QueryParam, error) {
	stepNames := make([]string, 0, len(q.Metadata.Steps))
	for _, s := range q.Metadata.Steps {
		stepNames = append(stepNames, s.Name)
	}

	params := storedquery.BuildQueryParams(topParams)

	for _, ref := range storedquery.FindStepReferences(sql, stepNames) {
		docs, ok := stepResults[ref.Step]
		if !ok {
			// The layering guarantees dependencies ran first; reaching this
			// is a scheduler bug, not a user error.
			return nil, fmt.Errorf("internal: step %q has not been executed yet", ref.Step)
		}
		if len(docs) == 0 {
			return nil, &NoRowsError{Step: ref.Step, Field: ref.Field}
		}

		first, ok := docs[0].(map[string]any)
		if !ok {
			return nil, &FieldNotFoundError{Step: ref.Step, Field: ref.Field}
		}
		value, ok := first[ref.Field]
		if !ok {
			available := make([]string, 0, len(first))
			for k := range first {
				available = append(available, k)
			}
			sort.Strings(available)
			return nil, &FieldNotFoundError{Step: ref.Step, Field: ref.Field, Available: available}
		}

		params = append(params, cosmos.QueryParam{
			Name:  fmt.Sprintf("@%s.%s", ref.Step, ref.Field),
			Value: value,
		})
	}

	return params, nil
}
