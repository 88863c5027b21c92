// internal/repository/profiles_file.go
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/common/validation"
	"iluma-intelligence/internal/models"
)

// RecordIssue describes an input document that failed schema validation.
type RecordIssue struct {
	Index  int      `json:"index"`
	ID     string   `json:"id,omitempty"`
	Errors []string `json:"errors"`
}

// FileProfileSource reads records from a JSON file holding either an array of
// records or an object with a "businesses" array. Documents failing the
// business record schema are skipped and logged.
type FileProfileSource struct {
	path   string
	logger logger.Logger
}

func NewFileProfileSource(path string, log logger.Logger) *FileProfileSource {
	return &FileProfileSource{
		path:   path,
		logger: log.WithFields(map[string]interface{}{"component": "file-profile-source", "path": path}),
	}
}

func (s *FileProfileSource) Load(ctx context.Context, q Query) ([]models.BusinessRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, apperrors.NewProfileSourceFailedError("file", err)
	}
	defer f.Close()

	records, issues, err := ReadRecords(f)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		s.logger.Warn("skipping invalid business record", map[string]interface{}{
			"index":  issue.Index,
			"id":     issue.ID,
			"errors": issue.Errors,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError("load profiles", err)
	}

	out := make([]models.BusinessRecord, 0, len(records))
	for _, rec := range records {
		if !q.Matches(rec) {
			continue
		}
		out = append(out, rec)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// ReadRecords decodes and schema-validates business records from r.
func ReadRecords(r io.Reader) ([]models.BusinessRecord, []RecordIssue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, apperrors.NewProfileSourceFailedError("file", err)
	}

	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, nil, apperrors.NewInvalidInputError(err.Error())
	}

	records := make([]models.BusinessRecord, 0, len(docs))
	var issues []RecordIssue
	for i, doc := range docs {
		id, _ := doc["id"].(string)

		result, err := validation.ValidateBusinessRecord(doc)
		if err != nil {
			return nil, nil, apperrors.NewProfileSourceFailedError("file", err)
		}
		if !result.Valid {
			issues = append(issues, RecordIssue{Index: i, ID: id, Errors: result.GetErrorMessages()})
			continue
		}

		rec, err := toRecord(doc)
		if err != nil {
			issues = append(issues, RecordIssue{Index: i, ID: id, Errors: []string{err.Error()}})
			continue
		}
		records = append(records, rec)
	}
	return records, issues, nil
}

func decodeDocuments(data []byte) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var docs []map[string]interface{}
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return docs, nil
	}

	var envelope struct {
		Businesses []map[string]interface{} `json:"businesses"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return envelope.Businesses, nil
}

func toRecord(doc map[string]interface{}) (models.BusinessRecord, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return models.BusinessRecord{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec models.BusinessRecord
	if err := dec.Decode(&rec); err != nil {
		return models.BusinessRecord{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
