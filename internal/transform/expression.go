package transform

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/gyaneshwarpardhi/logbridge/internal/event"
)

// ExpressionName is the registry key of the expression transform.
const ExpressionName = "expression"

// Expression renders events through a user supplied expr program, compiled once.
//
// Available identifiers: message, id, timestamp, owner, logGroup, logStream,
// subscriptionFilters. The program must yield a string or []byte.
type Expression struct {
	source  string
	program *vm.Program
}

func exprEnv(meta Meta, ev event.LogEvent) map[string]interface{} {
	filters := meta.SubscriptionFilters
	if filters == nil {
		filters = []string{}
	}
	return map[string]interface{}{
		"message":             ev.Message,
		"id":                  ev.ID,
		"timestamp":           ev.Timestamp,
		"owner":               meta.Owner,
		"logGroup":            meta.LogGroup,
		"logStream":           meta.LogStream,
		"subscriptionFilters": filters,
	}
}

// NewExpression compiles source against the event environment.
func NewExpression(source string) (*Expression, error) {
	program, err := expr.Compile(source, expr.Env(exprEnv(Meta{}, event.LogEvent{})))
	if err != nil {
		return nil, fmt.Errorf("compile transform expression: %w", err)
	}
	return &Expression{source: source, program: program}, nil
}

func (e *Expression) Name() string { return ExpressionName }

// Source returns the expression text.
func (e *Expression) Source() string { return e.source }

func (e *Expression) Transform(_ context.Context, meta Meta, ev event.LogEvent) ([]byte, error) {
	out, err := expr.Run(e.program, exprEnv(meta, ev))
	if err != nil {
		return nil, fmt.Errorf("run transform expression: %w", err)
	}
	switch v := out.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("transform expression returned %T, want string", out)
	}
}
