// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"iluma-intelligence/internal/common/config"
)

// ProfileIndex is the Elasticsearch connection backing the elasticsearch
// profile source, bound to the index holding business records.
type ProfileIndex struct {
	Client *elasticsearch.Client
	Index  string
}

// NewProfileIndex connects to the cluster listed in cfg for the given profile
// index. Addresses win over the single URL field.
func NewProfileIndex(cfg config.ElasticsearchConfig, index string) (*ProfileIndex, error) {
	if index == "" {
		return nil, fmt.Errorf("profile index name is empty")
	}
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no elasticsearch address configured")
	}

	esCfg := elasticsearch.Config{Addresses: addresses}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ProfileIndex{Client: es, Index: index}, nil
}

// CheckIndex verifies the cluster is reachable and the profile index exists.
func (p *ProfileIndex) CheckIndex(ctx context.Context) error {
	res, err := p.Client.Indices.Exists(
		[]string{p.Index},
		p.Client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index check failed: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("profile index %q does not exist", p.Index)
	case res.IsError():
		return fmt.Errorf("elasticsearch index check error: %s", res.Status())
	}
	return nil
}
