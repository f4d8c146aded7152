package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func prActivation() Activation {
	return Activation{
		Body: map[string]interface{}{
			"action": "closed",
			"pull_request": map[string]interface{}{
				"merged": true,
				"number": float64(17),
				"base":   map[string]interface{}{"ref": "main"},
				"head":   map[string]interface{}{"ref": "feature/parser", "sha": "4f2a9c1"},
			},
			"sender": map[string]interface{}{"login": "octocat"},
		},
		Header: map[string]string{
			"x-github-event": "pull_request",
			"content-type":   "application/json",
		},
		Event:  "pull_request",
		Branch: "main",
	}
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid simple expression",
			expr:      `body.action == 'closed'`,
			wantError: false,
		},
		{
			name:      "valid event comparison",
			expr:      `event == 'pull_request'`,
			wantError: false,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `payload.status == "active"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilterExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid bool expression",
			expr:      `body.action == 'closed'`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `body.action`,
			wantError: true,
		},
		{
			name:      "valid matches",
			expr:      `body.comment.body.matches('^/recheck\\s*$')`,
			wantError: false,
		},
		{
			name:      "valid branch comparison",
			expr:      `body.pull_request.base.ref == branch`,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateFilterExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateFilter(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	ctx := context.Background()
	activation := prActivation()

	tests := []struct {
		name      string
		expr      string
		want      bool
		wantError bool
	}{
		{
			name: "event equality true",
			expr: `event == 'pull_request'`,
			want: true,
		},
		{
			name: "event equality false",
			expr: `event == 'push'`,
			want: false,
		},
		{
			name: "nested payload field",
			expr: `body.pull_request.merged`,
			want: true,
		},
		{
			name: "branch variable",
			expr: `body.pull_request.base.ref == branch`,
			want: true,
		},
		{
			name: "header lookup",
			expr: `header['x-github-event'] == 'pull_request'`,
			want: true,
		},
		{
			name: "in list",
			expr: `body.action in ['opened', 'synchronize', 'reopened']`,
			want: false,
		},
		{
			name: "has macro",
			expr: `has(body.pull_request.head)`,
			want: true,
		},
		{
			name: "numeric comparison",
			expr: `body.pull_request.number > 10.0`,
			want: true,
		},
		{
			name:      "missing field errors",
			expr:      `body.missing_field == 'x'`,
			wantError: true,
		},
		{
			name: "false guard absorbs missing-field error",
			expr: `event == 'push' && body.missing_field == 'x'`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eval.EvaluateFilter(ctx, tt.expr, activation)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, result)
			}
		})
	}
}

func TestCompileFilterReuse(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompileFilter(`body.action == 'closed' && body.pull_request.merged`)
	require.NoError(t, err)

	ctx := context.Background()

	// The same compiled program must evaluate deterministically across calls.
	for i := 0; i < 3; i++ {
		result, err := eval.EvaluateProgram(ctx, program, prActivation())
		require.NoError(t, err)
		assert.True(t, result)
	}

	open := prActivation()
	open.Body["action"] = "opened"
	result, err := eval.EvaluateProgram(ctx, program, open)
	require.NoError(t, err)
	assert.False(t, result)
}

func TestCompileFilterRejectsNonBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.CompileFilter(`body.action`)
	assert.Error(t, err)
}

func TestExampleExpressionsCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range FilterExpressionExamples {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, eval.ValidateFilterExpression(expr))
		})
	}
}

func TestEvaluateProgramNilMaps(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompileFilter(`event == ''`)
	require.NoError(t, err)

	result, err := eval.EvaluateProgram(context.Background(), program, Activation{})
	require.NoError(t, err)
	assert.True(t, result)
}
