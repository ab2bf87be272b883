package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/e7nd7r/gnapsis/internal/types"
)

var validate = validator.New()

// Validate checks struct tags plus the cross-field rules tags cannot
// express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validate config", err)
		}
		messages := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			messages = append(messages, formatValidationError(e))
		}
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - "+strings.Join(messages, "\n  - "))
	}

	// Only the selected backend's section must be complete.
	switch cfg.Graph.Backend {
	case "age":
		if cfg.Graph.AGE.DSN == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				"graph.age.dsn is required when graph.backend is 'age'")
		}
		if cfg.Graph.AGE.GraphName == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				"graph.age.graph_name is required when graph.backend is 'age'")
		}
	case "neo4j":
		if cfg.Graph.Neo4j.URI == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				"graph.neo4j.uri is required when graph.backend is 'neo4j'")
		}
	}

	if cfg.Embedder.Provider == "openai" && cfg.Extraction.MinRelevance < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"extraction.min_relevance must not be negative with the openai embedder")
	}

	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := formatFieldPath(e.Namespace())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation (got: %v)", field, e.Tag(), e.Value())
	}
}

// formatFieldPath turns "Config.Graph.AGE.DSN" into "graph.age.dsn".
func formatFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ".")
}
