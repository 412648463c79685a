// Package pipeline executes declarative event-processing pipelines: an
// ordered chain of transformer, filter, enricher, and router stages applied
// to one event record.
//
// Pipelines follow the compile-then-run split used across the engine:
// Compile validates the whole definition (stage types, transform function
// names, condition groups, enrich rule shapes) and rejects invalid specs at
// load time; Run is a pure function of the compiled pipeline and the record
// apart from warning logs, so events evaluate concurrently without locking.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mlenstra/shrike/internal/rules"
	"github.com/mlenstra/shrike/internal/transform"
	"github.com/mlenstra/shrike/internal/types"
)

// LookupFunc is the external collaborator for enrich rules with a lookup
// key. An error from the lookup is a per-event anomaly, not a pipeline
// failure.
type LookupFunc func(key string, rec types.Record) (any, error)

// Options carries pipeline collaborators.
type Options struct {
	Lookup LookupFunc
	Logger *zap.Logger
}

// Warning records one per-event evaluation anomaly: a rule that failed and
// was skipped while the rest of the stage continued.
type Warning struct {
	Stage     int
	StageType string
	Rule      string
	Err       error
}

// Result is the outcome of one pipeline run for one event.
type Result struct {
	Record   types.Record
	Dropped  bool // a filter stage evaluated false; downstream stages did not run
	Routed   bool
	Route    string // named sink from the first matching route
	Warnings []Warning
}

// Pipeline is a compiled, immutable stage chain.
type Pipeline struct {
	id     string
	name   string
	stages []compiledStage
	log    *zap.Logger
}

type compiledStage struct {
	kind      string
	transform []compiledTransform
	filter    *rules.CompiledGroup
	enrich    []compiledEnrich
	routes    []compiledRoute
}

type compiledTransform struct {
	name   string // "source -> target" for diagnostics
	source []string
	target []string
	fn     transform.Func
}

type compiledEnrich struct {
	name   string
	target []string
	source []string // for function rules with a source field
	value  any
	tmpl   string
	fn     transform.Func
	lookup string
	lookFn LookupFunc
}

type compiledRoute struct {
	when   *rules.CompiledGroup
	target string
}

// ID returns the pipeline's configured identifier.
func (p *Pipeline) ID() string { return p.id }

// Name returns the pipeline's configured name.
func (p *Pipeline) Name() string { return p.name }

// Compile validates and pre-processes a pipeline definition.
func Compile(spec types.PipelineSpec, opts Options) (*Pipeline, error) {
	if len(spec.Stages) > types.MaxPipelineStages {
		return nil, fmt.Errorf("pipeline %q: %w", spec.ID, types.ErrTooManyStages)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	p := &Pipeline{
		id:     spec.ID,
		name:   spec.Name,
		stages: make([]compiledStage, 0, len(spec.Stages)),
		log:    log,
	}

	for i, stage := range spec.Stages {
		cs, err := compileStage(stage, opts)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q stage %d: %w", spec.ID, i, err)
		}
		p.stages = append(p.stages, cs)
	}

	return p, nil
}

func compileStage(spec types.StageSpec, opts Options) (compiledStage, error) {
	switch spec.Type {
	case types.StageTransformer:
		cs := compiledStage{kind: spec.Type}
		for _, rule := range spec.Transform {
			ct, err := compileTransform(rule)
			if err != nil {
				return compiledStage{}, err
			}
			cs.transform = append(cs.transform, ct)
		}
		return cs, nil

	case types.StageFilter:
		if spec.Filter == nil {
			return compiledStage{}, fmt.Errorf("filter stage: %w", types.ErrMalformedGroup)
		}
		group, err := rules.CompileGroup(*spec.Filter)
		if err != nil {
			return compiledStage{}, err
		}
		return compiledStage{kind: spec.Type, filter: group}, nil

	case types.StageEnricher:
		cs := compiledStage{kind: spec.Type}
		for _, rule := range spec.Enrich {
			ce, err := compileEnrich(rule, opts)
			if err != nil {
				return compiledStage{}, err
			}
			cs.enrich = append(cs.enrich, ce)
		}
		return cs, nil

	case types.StageRouter:
		cs := compiledStage{kind: spec.Type}
		for _, route := range spec.Routes {
			group, err := rules.CompileGroup(route.When)
			if err != nil {
				return compiledStage{}, fmt.Errorf("route %q: %w", route.Target, err)
			}
			cs.routes = append(cs.routes, compiledRoute{when: group, target: route.Target})
		}
		return cs, nil

	default:
		return compiledStage{}, fmt.Errorf("stage type %q: %w", spec.Type, types.ErrUnknownStageType)
	}
}

func compileTransform(rule types.TransformRule) (compiledTransform, error) {
	source, err := rules.SplitPath(rule.SourceField)
	if err != nil {
		return compiledTransform{}, fmt.Errorf("transform source %q: %w", rule.SourceField, err)
	}
	target, err := rules.SplitPath(rule.TargetField)
	if err != nil {
		return compiledTransform{}, fmt.Errorf("transform target %q: %w", rule.TargetField, err)
	}
	fn, err := transform.Lookup(rule.Function)
	if err != nil {
		return compiledTransform{}, err
	}
	return compiledTransform{
		name:   rule.SourceField + " -> " + rule.TargetField,
		source: source,
		target: target,
		fn:     fn,
	}, nil
}

func compileEnrich(rule types.EnrichRule, opts Options) (compiledEnrich, error) {
	target, err := rules.SplitPath(rule.TargetField)
	if err != nil {
		return compiledEnrich{}, fmt.Errorf("enrich target %q: %w", rule.TargetField, err)
	}

	ce := compiledEnrich{name: rule.TargetField, target: target}

	modes := 0
	if rule.Value != nil {
		modes++
		ce.value = rule.Value
	}
	if rule.Template != "" {
		modes++
		ce.tmpl = rule.Template
	}
	if rule.Function != "" {
		modes++
		fn, err := transform.Lookup(rule.Function)
		if err != nil {
			return compiledEnrich{}, err
		}
		ce.fn = fn
		if !transform.IsGenerator(rule.Function) {
			if rule.SourceField == "" {
				return compiledEnrich{}, fmt.Errorf("enrich %q: function %q requires source_field", rule.TargetField, rule.Function)
			}
			source, err := rules.SplitPath(rule.SourceField)
			if err != nil {
				return compiledEnrich{}, fmt.Errorf("enrich source %q: %w", rule.SourceField, err)
			}
			ce.source = source
		}
	}
	if rule.Lookup != "" {
		modes++
		if opts.Lookup == nil {
			return compiledEnrich{}, fmt.Errorf("enrich %q: %w", rule.TargetField, types.ErrLookupUnavailable)
		}
		ce.lookup = rule.Lookup
		ce.lookFn = opts.Lookup
	}

	if modes != 1 {
		return compiledEnrich{}, fmt.Errorf("enrich %q: exactly one of value, template, function, lookup required", rule.TargetField)
	}

	return ce, nil
}
