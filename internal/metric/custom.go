package metric

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// user-supplied derived columns, defined as expressions over canonical event
// names and evaluated against the counter report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/Knetic/govaluate"
	mapset "github.com/deckarep/golang-set/v2"

	"mpkibench/internal/perfstat"
)

// Definition describes one custom metric. The expression may reference any
// canonical event name; names containing characters outside identifier
// syntax, e.g. "L1-dcache-load-misses", must be bracket-escaped:
//
//	1000 * [L1-dcache-load-misses] / instructions
type Definition struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	evaluable  *govaluate.EvaluableExpression
}

// LoadDefinitions reads custom metric definitions from a JSON file and parses
// each expression once. A malformed file or expression is a configuration
// error and fails the load.
func LoadDefinitions(path string) ([]Definition, error) {
	contents, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read metric definition file: %w", err)
	}
	var definitions []Definition
	if err := json.Unmarshal(contents, &definitions); err != nil {
		return nil, fmt.Errorf("failed to parse metric definition file %s: %w", path, err)
	}
	names := mapset.NewSet[string]()
	for i := range definitions {
		if definitions[i].Name == "" {
			return nil, fmt.Errorf("metric definition %d in %s has no name", i, path)
		}
		if !names.Add(definitions[i].Name) {
			return nil, fmt.Errorf("duplicate metric definition name %q in %s", definitions[i].Name, path)
		}
		evaluable, err := govaluate.NewEvaluableExpression(definitions[i].Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expression for metric %q: %w", definitions[i].Name, err)
		}
		definitions[i].evaluable = evaluable
	}
	return definitions, nil
}

// Names returns the definition names in definition order.
func Names(definitions []Definition) []string {
	names := make([]string, 0, len(definitions))
	for _, def := range definitions {
		names = append(names, def.Name)
	}
	return names
}

// EvaluateCustom computes each custom metric against the counter report.
// Every variable in an expression resolves to the event's count, zero when
// absent. A metric whose evaluation fails or produces a non-finite value is
// undefined (nil) for this report; that never fails the run.
func EvaluateCustom(definitions []Definition, report perfstat.CounterReport) map[string]*float64 {
	values := make(map[string]*float64, len(definitions))
	for _, def := range definitions {
		variables := make(map[string]any)
		for _, variable := range def.evaluable.Vars() {
			variables[variable] = float64(report.Count(variable))
		}
		result, err := evaluate(def.evaluable, variables)
		if err != nil {
			slog.Debug("failed to evaluate custom metric", slog.String("metric", def.Name), slog.String("error", err.Error()))
			values[def.Name] = nil
			continue
		}
		value, ok := result.(float64)
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
			values[def.Name] = nil
			continue
		}
		values[def.Name] = &value
	}
	return values
}

// evaluate calls the expression evaluator and converts its panics to errors.
func evaluate(evaluable *govaluate.EvaluableExpression, variables map[string]any) (result any, err error) {
	defer func() {
		if errx := recover(); errx != nil {
			err = fmt.Errorf("expression evaluation panic: %v", errx)
		}
	}()
	return evaluable.Evaluate(variables)
}
