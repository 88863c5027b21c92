// internal/common/database/database_test.go
package database

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iluma-intelligence/internal/common/config"
)

func TestPostgresClientPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectClose()

	client := &PostgresClient{DB: db}
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsureSchema(t *testing.T) {
	t.Run("applies every statement", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		for range schemaStatements {
			mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectCommit()

		client := &PostgresClient{DB: db}
		require.NoError(t, client.EnsureSchema(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS business_profiles").WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		client := &PostgresClient{DB: db}
		err = client.EnsureSchema(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNewCacheRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name          string
		cfg           config.RedisConfig
		wantErr       bool
		wantNamespace string
	}{
		{"prefixed", config.RedisConfig{Address: mr.Addr(), KeyPrefix: "iluma:"}, false, "iluma:intelligence:"},
		{"no prefix", config.RedisConfig{Address: mr.Addr(), PoolSize: 2}, false, "intelligence:"},
		{"missing address", config.RedisConfig{}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewCacheRedis(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer client.Close()
			assert.NoError(t, client.Ping(context.Background()))
			assert.Equal(t, tt.wantNamespace, client.Namespace("intelligence"))
		})
	}
}

func TestProfileIndexCheckIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		switch r.URL.Path {
		case "/business_profiles":
			w.WriteHeader(http.StatusOK)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tests := []struct {
		name    string
		index   string
		wantErr string
	}{
		{"index exists", "business_profiles", ""},
		{"index missing", "missing", `profile index "missing" does not exist`},
		{"server error", "broken", "elasticsearch index check error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := NewProfileIndex(config.ElasticsearchConfig{URL: server.URL}, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.index, idx.Index)

			err = idx.CheckIndex(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewProfileIndexRejectsIncompleteConfig(t *testing.T) {
	_, err := NewProfileIndex(config.ElasticsearchConfig{URL: "http://localhost:9200"}, "")
	assert.Error(t, err)

	_, err = NewProfileIndex(config.ElasticsearchConfig{}, "business_profiles")
	assert.Error(t, err)
}
