package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Activation is the variable set classification predicates evaluate against:
// the parsed payload, the flattened request headers, the provider's event
// type, and the tracked branch from provider configuration.
type Activation struct {
	Body   map[string]interface{}
	Header map[string]string
	Event  string
	Branch string
}

func (a Activation) vars() map[string]interface{} {
	body := a.Body
	if body == nil {
		body = map[string]interface{}{}
	}
	header := a.Header
	if header == nil {
		header = map[string]string{}
	}
	return map[string]interface{}{
		"body":   body,
		"header": header,
		"event":  a.Event,
		"branch": a.Branch,
	}
}

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("body", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("header", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("event", cel.StringType),
		cel.Variable("branch", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// ValidateFilterExpression checks that an expression compiles and yields a
// boolean. Used at snapshot build so a bad rule never reaches the hot path.
func (e *Evaluator) ValidateFilterExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

// CompileFilter compiles a boolean predicate into a reusable program.
// Programs are safe for concurrent evaluation; predicates are compiled once
// per configuration snapshot, not per event.
func (e *Evaluator) CompileFilter(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

// EvaluateProgram runs a compiled predicate against one delivery.
func (e *Evaluator) EvaluateProgram(ctx context.Context, program cel.Program, activation Activation) (bool, error) {
	result, _, err := program.ContextEval(ctx, activation.vars())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

// EvaluateFilter compiles and runs an expression in one step. Handy for
// tests and one-off checks; the classifier uses CompileFilter instead.
func (e *Evaluator) EvaluateFilter(ctx context.Context, expression string, activation Activation) (bool, error) {
	program, err := e.CompileFilter(expression)
	if err != nil {
		return false, err
	}
	return e.EvaluateProgram(ctx, program, activation)
}
