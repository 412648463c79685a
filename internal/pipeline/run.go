// internal/pipeline/run.go
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mlenstra/shrike/internal/rules"
	"github.com/mlenstra/shrike/internal/types"
)

/*
 * Pipeline execution.
 *
 * Stages execute strictly in declared order, threading the (cloned) record
 * through. The input record is never mutated: Run clones the top level once
 * and SetField clones nested maps along any written path.
 *
 * Failure policy: a rule that fails at runtime (coercion failure, lookup
 * error) is skipped and recorded as a warning against the event; the
 * remaining rules in the stage still apply. Nothing a single event does can
 * abort the pipeline - pipelines process a stream and must remain live.
 *
 * Terminal stages: a filter that evaluates false drops the event from this
 * run (downstream stages do not execute). A router is the last meaningful
 * stage in a branch - routing hands off to a named sink, and an event
 * matching no route is unrouted, which is a policy-defined default, not an
 * engine failure.
 */

// Run executes the pipeline against one event record.
func (p *Pipeline) Run(rec types.Record) Result {
	result := Result{Record: rec.Clone()}

	for i := range p.stages {
		stage := &p.stages[i]
		switch stage.kind {
		case types.StageTransformer:
			p.runTransformer(stage, i, &result)

		case types.StageFilter:
			if !rules.Matches(stage.filter, result.Record) {
				result.Dropped = true
				return result
			}

		case types.StageEnricher:
			p.runEnricher(stage, i, &result)

		case types.StageRouter:
			for _, route := range stage.routes {
				if rules.Matches(route.when, result.Record) {
					result.Routed = true
					result.Route = route.target
					return result
				}
			}
			// No route matched: unrouted, and nothing runs after a router
			return result
		}
	}

	return result
}

func (p *Pipeline) runTransformer(stage *compiledStage, idx int, result *Result) {
	for _, t := range stage.transform {
		resolved := rules.Resolve(result.Record, t.source)
		if !resolved.Found {
			// Missing source skips the rule, by contract not an anomaly
			continue
		}
		out, err := t.fn(resolved.Value)
		if err != nil {
			p.warn(result, idx, types.StageTransformer, t.name, err)
			continue
		}
		rules.SetField(result.Record, t.target, out)
	}
}

func (p *Pipeline) runEnricher(stage *compiledStage, idx int, result *Result) {
	for _, e := range stage.enrich {
		value, err := e.eval(result.Record)
		if err != nil {
			p.warn(result, idx, types.StageEnricher, e.name, err)
			continue
		}
		rules.SetField(result.Record, e.target, value)
	}
}

// eval produces the enrich rule's value from whichever mode the rule
// compiled with.
func (e *compiledEnrich) eval(rec types.Record) (any, error) {
	switch {
	case e.value != nil:
		return e.value, nil
	case e.tmpl != "":
		return rules.Render(e.tmpl, rec), nil
	case e.fn != nil:
		var input any
		if e.source != nil {
			resolved := rules.Resolve(rec, e.source)
			if !resolved.Found {
				return nil, fmt.Errorf("enrich source absent: %w", types.ErrCoercionFailed)
			}
			input = resolved.Value
		}
		return e.fn(input)
	default:
		return e.lookFn(e.lookup, rec)
	}
}

func (p *Pipeline) warn(result *Result, stage int, stageType, rule string, err error) {
	result.Warnings = append(result.Warnings, Warning{
		Stage:     stage,
		StageType: stageType,
		Rule:      rule,
		Err:       err,
	})
	p.log.Warn("pipeline rule skipped",
		zap.String("pipeline", p.id),
		zap.Int("stage", stage),
		zap.String("stage_type", stageType),
		zap.String("rule", rule),
		zap.Error(err),
	)
}
