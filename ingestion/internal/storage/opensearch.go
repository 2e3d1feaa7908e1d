package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/telhawk-systems/relay/common/models"
)

// OpenSearchConfig holds OpenSearch connection and index configuration
type OpenSearchConfig struct {
	URL           string `mapstructure:"url" yaml:"url"`
	Username      string `mapstructure:"username" yaml:"username"`
	Password      string `mapstructure:"password" yaml:"password"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify" yaml:"tls_skip_verify"`
	IndexPrefix   string `mapstructure:"index_prefix" yaml:"index_prefix"`
	ShardCount    int    `mapstructure:"shard_count" yaml:"shard_count"`
	ReplicaCount  int    `mapstructure:"replica_count" yaml:"replica_count"`
	// Refresh is passed as the refresh parameter of each index request
	// ("", "true", "false" or "wait_for").
	Refresh string `mapstructure:"refresh" yaml:"refresh"`
}

// OpenSearchSink indexes one document per record.
type OpenSearchSink struct {
	client *opensearch.Client
	config OpenSearchConfig
	newID  func() string
}

// NewOpenSearchSink creates the client. It does not contact the cluster;
// call Initialize for that.
func NewOpenSearchSink(cfg OpenSearchConfig) (*OpenSearchSink, error) {
	if cfg.IndexPrefix == "" {
		cfg.IndexPrefix = "relay"
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &OpenSearchSink{
		client: client,
		config: cfg,
		newID:  uuid.NewString,
	}, nil
}

// IndexName is the index all records are written to.
func (s *OpenSearchSink) IndexName() string {
	return s.config.IndexPrefix + "-messages"
}

// Initialize verifies the connection and installs the index template.
// Documents can still be indexed with dynamic mappings if it fails.
func (s *OpenSearchSink) Initialize(ctx context.Context) error {
	info, err := s.client.Info(s.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	if err := s.createIndexTemplate(ctx); err != nil {
		return fmt.Errorf("failed to create index template: %w", err)
	}

	slog.Info("OpenSearch initialized", slog.String("index", s.IndexName()))
	return nil
}

func (s *OpenSearchSink) Insert(ctx context.Context, rec models.Record) error {
	if err := requireStamped(rec); err != nil {
		return err
	}

	body, err := json.Marshal(rec.Document())
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	index := s.client.Index
	res, err := index(
		s.IndexName(),
		bytes.NewReader(body),
		index.WithDocumentID(s.newID()),
		index.WithContext(ctx),
		index.WithRefresh(s.config.Refresh),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("index document: %s - %s", res.Status(), string(detail))
	}
	return nil
}

func (s *OpenSearchSink) Name() string { return BackendOpenSearch }

func (s *OpenSearchSink) Close(context.Context) error { return nil }

func (s *OpenSearchSink) createIndexTemplate(ctx context.Context) error {
	shards := s.config.ShardCount
	if shards <= 0 {
		shards = 1
	}

	template := map[string]any{
		"index_patterns": []string{s.IndexName()},
		"template": map[string]any{
			"settings": map[string]any{
				"number_of_shards":   shards,
				"number_of_replicas": s.config.ReplicaCount,
			},
			"mappings": messageMappings(),
		},
		"priority": 100,
	}

	body, err := json.Marshal(template)
	if err != nil {
		return err
	}

	putTemplate := s.client.Indices.PutIndexTemplate
	res, err := putTemplate(
		s.config.IndexPrefix+"-messages-template",
		bytes.NewReader(body),
		putTemplate.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s - %s", res.Status(), string(detail))
	}
	return nil
}

func messageMappings() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"username": map[string]any{
				"type": "keyword",
			},
			"message": map[string]any{
				"type": "text",
			},
			"received_at": map[string]any{
				"type": "date",
			},
		},
	}
}
