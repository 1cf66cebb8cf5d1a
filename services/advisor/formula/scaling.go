// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package formula resolves numeric scaling expressions for the crafting
// engine.
//
// A scaling expression is a small declarative tree (Scaling) describing how
// a base value combines with stats, auxiliary variables, and optional
// textual sub-equations. The package also hosts the sandboxed expression
// evaluator (EvalExpression), the expected-value crit formula (CritEV), the
// bonus-tier recursion (BonusTiers), and the condition-effect tables used
// by the transition engine.
//
// Every entry point is a pure function over its inputs. Malformed input
// never produces an error or a panic; it produces a documented safe
// default (usually 0) so a bad catalog entry degrades a single gain
// computation rather than the whole search.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The only shared state is the
// bounded compiled-expression cache, which is mutex-protected.
package formula

import "math"

// MaxSafeValue bounds every number the evaluator returns. Results beyond
// this magnitude are clamped rather than allowed to approach Inf, and NaN
// collapses to 0.
const MaxSafeValue = 1e15

// Vars is the closed variable table scaling expressions resolve against.
// Lookups of absent names yield 0.
type Vars map[string]float64

// Get returns the value bound to name, or 0 when absent.
func (v Vars) Get(name string) float64 {
	if v == nil {
		return 0
	}
	return v[name]
}

// Scaling is a declarative scaling-expression tree.
//
// Evaluation starts from Value and folds in each optional clause in a
// fixed order (see Evaluate). Nodes may carry an UpgradeKey so mastery
// upgrades can locate and adjust a specific node without reflective
// walking; see Walk and FindUpgradeNode.
//
// Scaling trees are catalog data: built once by the adapter and treated
// as immutable afterwards. Anything that needs to modify one (mastery
// upgrades) must operate on a Clone.
type Scaling struct {
	// Value is the base numeric value evaluation starts from.
	Value float64 `json:"value" yaml:"value"`

	// Stat names a primary stat in the variable table; when set the
	// running value is multiplied by it. Absent stats resolve to 0.
	Stat string `json:"stat,omitempty" yaml:"stat,omitempty"`

	// Variable names an auxiliary variable; same multiply semantics as
	// Stat.
	Variable string `json:"variable,omitempty" yaml:"variable,omitempty"`

	// Equation is a textual sub-equation evaluated by EvalExpression;
	// its result multiplies the running value.
	Equation string `json:"equation,omitempty" yaml:"equation,omitempty"`

	// Custom multiplies the running value by 1 + Multiplier*vars[Variable].
	Custom *CustomScaling `json:"custom,omitempty" yaml:"custom,omitempty"`

	// Additive is evaluated independently and added after all
	// multiplicative clauses.
	Additive *Scaling `json:"additive,omitempty" yaml:"additive,omitempty"`

	// Max caps the final result. Positive caps clamp from above,
	// negative caps clamp from below.
	Max *Scaling `json:"max,omitempty" yaml:"max,omitempty"`

	// UpgradeKey identifies this node as a mastery-upgrade target.
	UpgradeKey string `json:"upgrade_key,omitempty" yaml:"upgrade_key,omitempty"`
}

// CustomScaling is the "1 + m*x" clause of a scaling expression.
type CustomScaling struct {
	Variable   string  `json:"variable" yaml:"variable"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// Evaluate resolves a scaling tree against a variable table.
//
// Resolution order:
//  1. start with spec.Value (a nil spec yields def)
//  2. multiply by the named Stat lookup, if set
//  3. multiply by the named Variable lookup, if set
//  4. multiply by the result of the textual Equation, if set
//  5. multiply by 1 + Custom.Multiplier*vars[Custom.Variable], if set
//  6. add the evaluated Additive sub-tree, if set
//  7. round by magnitude: floor above 10, ceil below -10, otherwise
//     round to two decimals
//  8. clamp to the evaluated Max sub-tree, direction-aware
//
// Inputs:
//   - spec: The scaling tree (nil is allowed)
//   - vars: Variable table; absent names resolve to 0
//   - def: Returned unchanged when spec is nil
//
// Outputs:
//   - float64: The resolved value, always finite
func Evaluate(spec *Scaling, vars Vars, def float64) float64 {
	if spec == nil {
		return def
	}

	v := spec.Value
	if spec.Stat != "" {
		v *= vars.Get(spec.Stat)
	}
	if spec.Variable != "" {
		v *= vars.Get(spec.Variable)
	}
	if spec.Equation != "" {
		v *= EvalExpression(spec.Equation, vars)
	}
	if spec.Custom != nil {
		v *= 1 + spec.Custom.Multiplier*vars.Get(spec.Custom.Variable)
	}
	if spec.Additive != nil {
		v += Evaluate(spec.Additive, vars, 0)
	}

	v = roundByMagnitude(v)

	if spec.Max != nil {
		limit := Evaluate(spec.Max, vars, 0)
		if limit >= 0 {
			if v > limit {
				v = limit
			}
		} else if v < limit {
			v = limit
		}
	}

	return ClampFinite(v)
}

// roundByMagnitude applies the evaluator's rounding rule: large positive
// values floor, large negative values ceil, small values round to two
// decimals (collapsing to an exact integer when the rounded value is
// integral).
func roundByMagnitude(v float64) float64 {
	switch {
	case v > 10:
		return math.Floor(v)
	case v < -10:
		return math.Ceil(v)
	default:
		r := math.Round(v*100) / 100
		if r == math.Trunc(r) {
			return math.Trunc(r)
		}
		return r
	}
}

// ClampFinite forces a value into the finite range the engine operates
// in. NaN becomes 0; magnitudes beyond MaxSafeValue are clamped.
func ClampFinite(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > MaxSafeValue {
		return MaxSafeValue
	}
	if v < -MaxSafeValue {
		return -MaxSafeValue
	}
	return v
}

// Clone returns a deep copy of the scaling tree. A nil receiver clones
// to nil.
func (s *Scaling) Clone() *Scaling {
	if s == nil {
		return nil
	}
	out := *s
	if s.Custom != nil {
		c := *s.Custom
		out.Custom = &c
	}
	out.Additive = s.Additive.Clone()
	out.Max = s.Max.Clone()
	return &out
}

// Walk traverses a scaling tree depth-first (node, Additive, Max),
// calling visit on every node. Traversal stops early when visit returns
// false.
//
// Outputs:
//   - bool: False when the visitor stopped the traversal
func Walk(s *Scaling, visit func(*Scaling) bool) bool {
	if s == nil {
		return true
	}
	if !visit(s) {
		return false
	}
	if !Walk(s.Additive, visit) {
		return false
	}
	return Walk(s.Max, visit)
}

// FindUpgradeNode returns the first node in the tree whose UpgradeKey
// equals key, or nil when no node matches.
func FindUpgradeNode(s *Scaling, key string) *Scaling {
	if key == "" {
		return nil
	}
	var found *Scaling
	Walk(s, func(n *Scaling) bool {
		if n.UpgradeKey == key {
			found = n
			return false
		}
		return true
	})
	return found
}
