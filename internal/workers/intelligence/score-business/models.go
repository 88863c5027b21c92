// internal/workers/intelligence/score-business/models.go
package scorebusiness

import "iluma-intelligence/internal/models"

type Input struct {
	BusinessID    string                 `json:"businessId"`
	Metrics       map[string]interface{} `json:"metrics"`
	PreviousScore *models.CompositeScore `json:"previousScore,omitempty"`
}

type Output struct {
	BusinessID       string                `json:"businessId"`
	Score            models.CompositeScore `json:"score"`
	PartialData      bool                  `json:"partialData"`
	Warnings         []string              `json:"warnings,omitempty"`
	ValidationErrors []FieldError          `json:"validationErrors,omitempty"`
	Persisted        bool                  `json:"persisted"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
