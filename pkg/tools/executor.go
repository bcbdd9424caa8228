package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/maisonlane/concierge/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

const defaultTimeout = 30 * time.Second

// Executor runs tool calls against a registry. Every failure mode is folded
// into an error Result so a bad call never aborts the surrounding turn.
type Executor struct {
	registry *Registry
	timeout  time.Duration
}

// NewExecutor creates an Executor backed by the given registry
func NewExecutor(registry *Registry, timeout time.Duration) *Executor {
	observability.EnsureRegistered()

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	log.Info().
		Dur("timeout", timeout).
		Msg("Tool executor initialized")

	return &Executor{
		registry: registry,
		timeout:  timeout,
	}
}

// Execute runs one tool call and returns its result
func (e *Executor) Execute(ctx context.Context, call Call) Result {
	startTime := time.Now()

	tool, schema := e.registry.lookup(call.Name)
	if tool == nil {
		log.Warn().
			Str("tool", call.Name).
			Str("call_id", call.ID).
			Msg("Tool not found")
		observability.RecordToolExecution(call.Name, time.Since(startTime), false)
		return Result{
			CallID:  call.ID,
			Name:    call.Name,
			Success: false,
			Error:   fmt.Sprintf("tool not found: %s", call.Name),
		}
	}

	params := call.Arguments
	if params == nil {
		params = map[string]interface{}{}
	}

	if err := validateParameters(schema, params); err != nil {
		log.Warn().
			Str("tool", call.Name).
			Str("call_id", call.ID).
			Err(err).
			Msg("Parameter validation failed")
		observability.RecordToolExecution(call.Name, time.Since(startTime), false)
		return Result{
			CallID:  call.ID,
			Name:    call.Name,
			Success: false,
			Error:   fmt.Sprintf("parameter validation failed: %v", err),
		}
	}

	log.Debug().
		Str("tool", call.Name).
		Str("call_id", call.ID).
		Msg("Executing tool")

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resultChan := make(chan interface{}, 1)
	errChan := make(chan error, 1)

	go func() {
		result, err := tool.Handler(timeoutCtx, params)
		if err != nil {
			errChan <- err
		} else {
			resultChan <- result
		}
	}()

	select {
	case result := <-resultChan:
		duration := time.Since(startTime)
		output, truncated := truncateOutput(result)

		log.Debug().
			Str("tool", call.Name).
			Dur("duration", duration).
			Bool("truncated", truncated).
			Msg("Tool execution completed")
		observability.RecordToolExecution(call.Name, duration, true)

		return Result{
			CallID:    call.ID,
			Name:      call.Name,
			Success:   true,
			Output:    output,
			Truncated: truncated,
		}

	case err := <-errChan:
		duration := time.Since(startTime)

		log.Error().
			Str("tool", call.Name).
			Dur("duration", duration).
			Err(err).
			Msg("Tool execution failed")
		observability.RecordToolExecution(call.Name, duration, false)

		return Result{
			CallID:  call.ID,
			Name:    call.Name,
			Success: false,
			Error:   err.Error(),
		}

	case <-timeoutCtx.Done():
		duration := time.Since(startTime)

		log.Error().
			Str("tool", call.Name).
			Dur("duration", duration).
			Msg("Tool execution timeout")
		observability.RecordToolExecution(call.Name, duration, false)

		return Result{
			CallID:  call.ID,
			Name:    call.Name,
			Success: false,
			Error:   fmt.Sprintf("tool execution timeout after %v", e.timeout),
		}
	}
}

// ExecuteAll runs calls sequentially in the order they were issued
func (e *Executor) ExecuteAll(ctx context.Context, calls []Call) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.Execute(ctx, call))
	}
	return results
}

func validateParameters(schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}

	if !result.Valid() {
		errors := []string{}
		for _, err := range result.Errors() {
			errors = append(errors, err.String())
		}
		return fmt.Errorf("validation errors: %v", errors)
	}

	return nil
}

func truncateOutput(output interface{}) (interface{}, bool) {
	const maxSize = 10 * 1024 // 10KB

	str := fmt.Sprintf("%v", output)
	if len(str) <= maxSize {
		return output, false
	}

	truncated := str[:maxSize] + "\n... [output truncated]"
	log.Warn().
		Int("original", len(str)).
		Int("truncated", maxSize).
		Msg("Output truncated")

	return truncated, true
}
