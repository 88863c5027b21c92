// internal/repository/profiles_postgres.go
package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

const profilesBaseQuery = `
		SELECT id, name, sector, city, lat, lng, metrics, potential, status
		FROM business_profiles`

// PostgresProfileSource reads business records from business_profiles. The
// metrics column is JSONB and is handed to the normalizer untyped.
type PostgresProfileSource struct {
	db *sql.DB
}

func NewPostgresProfileSource(db *sql.DB) *PostgresProfileSource {
	return &PostgresProfileSource{db: db}
}

func (s *PostgresProfileSource) Load(ctx context.Context, q Query) ([]models.BusinessRecord, error) {
	query, args := buildProfilesQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewProfileSourceFailedError("postgres", err)
	}
	defer rows.Close()

	records := make([]models.BusinessRecord, 0)
	for rows.Next() {
		var (
			rec               models.BusinessRecord
			name, city        sql.NullString
			potential, status sql.NullString
			metrics           []byte
		)
		if err := rows.Scan(
			&rec.ID, &name, &rec.Sector, &city,
			&rec.Coordinates.Lat, &rec.Coordinates.Lng,
			&metrics, &potential, &status,
		); err != nil {
			return nil, apperrors.NewProfileSourceFailedError("postgres", err)
		}
		rec.Name = name.String
		rec.City = city.String
		rec.Potential = models.Potential(potential.String)
		rec.Status = models.Status(status.String)
		if rec.Metrics, err = decodeMetrics(metrics); err != nil {
			return nil, apperrors.NewProfileSourceFailedError("postgres", fmt.Errorf("record %s: %w", rec.ID, err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewProfileSourceFailedError("postgres", err)
	}
	return records, nil
}

func buildProfilesQuery(q Query) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if len(q.IDs) > 0 {
		args = append(args, pq.Array(q.IDs))
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(q.Sectors) > 0 {
		args = append(args, pq.Array(lowerAll(q.Sectors)))
		where = append(where, fmt.Sprintf("lower(trim(sector)) = ANY($%d)", len(args)))
	}
	if len(q.Cities) > 0 {
		args = append(args, pq.Array(lowerAll(q.Cities)))
		where = append(where, fmt.Sprintf("lower(trim(city)) = ANY($%d)", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(profilesBaseQuery)
	if len(where) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString("\n\t\tORDER BY id")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(fmt.Sprintf("\n\t\tLIMIT $%d", len(args)))
	}
	return sb.String(), args
}

// decodeMetrics keeps numbers as json.Number so the normalizer sees the
// stored precision.
func decodeMetrics(raw []byte) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]interface{}{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var metrics map[string]interface{}
	if err := dec.Decode(&metrics); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	if metrics == nil {
		metrics = map[string]interface{}{}
	}
	return metrics, nil
}
