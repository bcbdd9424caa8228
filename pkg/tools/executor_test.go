package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() Definition {
	return Definition{
		Name:        "echo",
		Description: "Echoes the input back",
		Parameters: []Parameter{
			{
				Name:        "input",
				Type:        "string",
				Description: "Text to echo",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return params["input"], nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(echoTool()))

	tool := r.Get("echo")
	require.NotNil(t, tool)
	assert.Equal(t, "echo", tool.Name)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(echoTool()))
	assert.Error(t, r.Register(echoTool()))
}

func TestRegistry_Register_InvalidDefinition(t *testing.T) {
	r := NewRegistry()

	handler := func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return nil, nil }

	tests := []struct {
		name string
		def  Definition
	}{
		{
			name: "empty name",
			def:  Definition{Description: "Test", Handler: handler},
		},
		{
			name: "empty description",
			def:  Definition{Name: "test", Handler: handler},
		},
		{
			name: "nil handler",
			def:  Definition{Name: "test", Description: "Test"},
		},
		{
			name: "bad parameter type",
			def: Definition{
				Name:        "test",
				Description: "Test",
				Parameters:  []Parameter{{Name: "x", Type: "uuid", Description: "X"}},
				Handler:     handler,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, r.Register(tt.def))
		})
	}
}

func TestExecute_Success(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))
	e := NewExecutor(r, 5*time.Second)

	result := e.Execute(context.Background(), Call{
		ID:        "call-1",
		Name:      "echo",
		Arguments: map[string]interface{}{"input": "hello"},
	})

	assert.True(t, result.Success)
	assert.Equal(t, "call-1", result.CallID)
	assert.Equal(t, "echo", result.Name)
	assert.Equal(t, "hello", result.Output)
	assert.Empty(t, result.Error)
}

func TestExecute_UnknownTool(t *testing.T) {
	e := NewExecutor(NewRegistry(), 5*time.Second)

	result := e.Execute(context.Background(), Call{
		ID:   "call-1",
		Name: "no_such_tool",
	})

	assert.False(t, result.Success)
	assert.Equal(t, "call-1", result.CallID)
	assert.Contains(t, result.Error, "tool not found")
}

func TestExecute_ValidationFailure(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))
	e := NewExecutor(r, 5*time.Second)

	t.Run("missing required", func(t *testing.T) {
		result := e.Execute(context.Background(), Call{ID: "c1", Name: "echo"})
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "parameter validation failed")
	})

	t.Run("wrong type", func(t *testing.T) {
		result := e.Execute(context.Background(), Call{
			ID:        "c2",
			Name:      "echo",
			Arguments: map[string]interface{}{"input": 42},
		})
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "parameter validation failed")
	})

	t.Run("unknown argument", func(t *testing.T) {
		result := e.Execute(context.Background(), Call{
			ID:        "c3",
			Name:      "echo",
			Arguments: map[string]interface{}{"input": "x", "extra": true},
		})
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "parameter validation failed")
	})
}

func TestExecute_HandlerError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{
		Name:        "failing",
		Description: "Always fails",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, errors.New("backend unavailable")
		},
	}))
	e := NewExecutor(r, 5*time.Second)

	result := e.Execute(context.Background(), Call{ID: "c1", Name: "failing"})

	assert.False(t, result.Success)
	assert.Equal(t, "c1", result.CallID)
	assert.Equal(t, "backend unavailable", result.Error)
}

func TestExecute_Timeout(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{
		Name:        "slow",
		Description: "Sleeps past the timeout",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			select {
			case <-time.After(2 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}))
	e := NewExecutor(r, 50*time.Millisecond)

	result := e.Execute(context.Background(), Call{ID: "c1", Name: "slow"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timeout")
}

func TestExecute_TruncatesLargeOutput(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{
		Name:        "big",
		Description: "Returns oversized output",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return strings.Repeat("x", 20*1024), nil
		},
	}))
	e := NewExecutor(r, 5*time.Second)

	result := e.Execute(context.Background(), Call{ID: "c1", Name: "big"})

	assert.True(t, result.Success)
	assert.True(t, result.Truncated)
	assert.Contains(t, result.Output.(string), "[output truncated]")
}

func TestExecuteAll_PreservesOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))
	e := NewExecutor(r, 5*time.Second)

	results := e.ExecuteAll(context.Background(), []Call{
		{ID: "c1", Name: "echo", Arguments: map[string]interface{}{"input": "first"}},
		{ID: "c2", Name: "missing"},
		{ID: "c3", Name: "echo", Arguments: map[string]interface{}{"input": "third"}},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "c1", results[0].CallID)
	assert.Equal(t, "first", results[0].Output)
	assert.False(t, results[1].Success)
	assert.Equal(t, "c3", results[2].CallID)
	assert.Equal(t, "third", results[2].Output)
}

func TestSchemaMap(t *testing.T) {
	def := echoTool()
	schema := SchemaMap(def)

	assert.Equal(t, "object", schema["type"])
	props := schema["properties"].(map[string]interface{})
	assert.Contains(t, props, "input")
	assert.Equal(t, []string{"input"}, schema["required"])
}
