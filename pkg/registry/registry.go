// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/validation"
)

//go:embed activities.json
var defaultRegistry []byte

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

// Default returns the built-in catalog of intelligence activities.
func Default() (*Catalog, error) {
	reg, err := Parse(defaultRegistry)
	if err != nil {
		return nil, err
	}
	return Compile(reg)
}

// Catalog is a validated registry with compiled input schemas, indexed by task type.
type Catalog struct {
	activities map[string]Activity
	schemas    map[string]*validation.Schema
}

// Compile checks activity naming and task type uniqueness and compiles every
// input schema.
func Compile(reg *ActivityRegistry) (*Catalog, error) {
	c := &Catalog{
		activities: make(map[string]Activity, len(reg.Activities)),
		schemas:    make(map[string]*validation.Schema, len(reg.Activities)),
	}
	for _, a := range reg.Activities {
		if err := validation.ValidateActivityNaming(a.ID); err != nil {
			return nil, fmt.Errorf("activity %q: %w", a.ID, err)
		}
		if a.TaskType == "" {
			return nil, fmt.Errorf("activity %q: taskType is required", a.ID)
		}
		if _, dup := c.activities[a.TaskType]; dup {
			return nil, fmt.Errorf("activity %q: duplicate taskType %q", a.ID, a.TaskType)
		}
		if _, err := a.TimeoutDuration(); err != nil {
			return nil, fmt.Errorf("activity %q: %w", a.ID, err)
		}
		for _, code := range a.ErrorCodes {
			if !apperrors.IsKnownCode(apperrors.ErrorCode(code)) {
				return nil, fmt.Errorf("activity %q: unknown error code %q", a.ID, code)
			}
		}
		c.activities[a.TaskType] = a

		if len(a.InputSchema) == 0 {
			continue
		}
		schema, err := validation.Compile(a.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("activity %q: %w", a.ID, err)
		}
		c.schemas[a.TaskType] = schema
	}
	return c, nil
}

func (c *Catalog) Activity(taskType string) (Activity, bool) {
	a, ok := c.activities[taskType]
	return a, ok
}

// TaskTypes lists the catalogued task types in sorted order.
func (c *Catalog) TaskTypes() []string {
	out := make([]string, 0, len(c.activities))
	for t := range c.activities {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ValidateInput checks job variables against the task type's input schema.
// Task types without a schema accept any JSON object.
func (c *Catalog) ValidateInput(taskType, variables string) (*validation.ValidationResult, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	schema, ok := c.schemas[taskType]
	if !ok {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return schema.Validate(doc)
}
