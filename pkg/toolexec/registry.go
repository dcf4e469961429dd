package toolexec

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// Parameter defines a single tool parameter.
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// Handler is the function signature for tool execution. It may perform
// network or file I/O and must return a JSON-serializable value.
type Handler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Definition defines a tool's metadata and handler.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`
}

// Descriptor is the model-facing form of a registered tool.
type Descriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
}

// Result is the outcome of a tool invocation. Unknown tools, schema
// violations, handler errors and handler panics all land here as
// Success=false; nothing escapes the registry boundary.
type Result struct {
	Success bool        `json:"success"`
	Output  interface{} `json:"output,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Registry maps tool names to capabilities and dispatches invocations.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Definition
	schemas map[string]*gojsonschema.Schema
	order   []string
	logger  zerolog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools:   make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger,
	}
}

// Register validates and registers a tool. Registering a name that already
// exists replaces the earlier registration; last registration wins. This is
// documented behavior, not an accident.
func (r *Registry) Register(def Definition) error {
	if err := validateDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := compileSchema(def)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		r.logger.Warn().Str("tool", def.Name).Msg("Replacing existing tool registration")
	} else {
		r.order = append(r.order, def.Name)
	}

	r.tools[def.Name] = &def
	r.schemas[def.Name] = schema

	r.logger.Info().Str("tool", def.Name).Msg("Tool registered")
	return nil
}

// Lookup returns a tool definition by name, or nil.
func (r *Registry) Lookup(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tools[name]
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Descriptors returns the model-facing descriptors of all registered tools in
// first-registration order. A replaced tool keeps its original position.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		def := r.tools[name]
		out = append(out, Descriptor{
			Name:        def.Name,
			Description: def.Description,
			Schema:      schemaMap(*def),
		})
	}
	return out
}

// Execute invokes a tool by name. Failures never propagate as errors; they
// are converted into a Result the caller can feed back to the model. The
// registry performs no retries and gives no idempotency guarantees.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) (result Result) {
	r.mu.RLock()
	def := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if def == nil {
		r.logger.Warn().Str("tool", name).Msg("Unknown tool requested")
		return Result{Success: false, Error: fmt.Sprintf("unknown tool: %s", name)}
	}

	if params == nil {
		params = map[string]interface{}{}
	}

	if err := validateParams(schema, params); err != nil {
		r.logger.Error().Str("tool", name).Err(err).Msg("Parameter validation failed")
		return Result{Success: false, Error: fmt.Sprintf("parameter validation failed: %v", err)}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("tool", name).Interface("panic", rec).Msg("Tool handler panicked")
			result = Result{Success: false, Error: fmt.Sprintf("tool %s panicked: %v", name, rec)}
		}
	}()

	r.logger.Debug().Str("tool", name).Msg("Executing tool")

	output, err := def.Handler(ctx, params)
	if err != nil {
		r.logger.Error().Str("tool", name).Err(err).Msg("Tool execution failed")
		return Result{Success: false, Error: err.Error()}
	}

	output, truncated := truncateOutput(output)
	if truncated {
		r.logger.Warn().Str("tool", name).Msg("Tool output truncated")
	}

	return Result{Success: true, Output: output}
}

// validateDefinition checks a tool definition before registration.
func validateDefinition(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}
	}
	return nil
}

// schemaMap builds the JSON-Schema object form of a definition's parameters.
func schemaMap(def Definition) map[string]interface{} {
	properties := make(map[string]interface{})
	required := []string{}

	for _, param := range def.Parameters {
		paramSchema := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			paramSchema["default"] = param.Default
		}
		properties[param.Name] = paramSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// compileSchema compiles the parameter schema for invocation-time validation.
func compileSchema(def Definition) (*gojsonschema.Schema, error) {
	loader := gojsonschema.NewGoLoader(schemaMap(def))
	return gojsonschema.NewSchema(loader)
}

// validateParams validates parameters against a compiled schema.
func validateParams(schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := []string{}
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("validation errors: %v", msgs)
	}
	return nil
}

// truncateOutput caps string-convertible output at 10KB so a single tool
// cannot flood the conversation window.
func truncateOutput(output interface{}) (interface{}, bool) {
	const maxSize = 10 * 1024

	str, ok := output.(string)
	if !ok || len(str) <= maxSize {
		return output, false
	}
	return str[:maxSize] + "\n... [output truncated]", true
}
