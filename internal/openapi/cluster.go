package openapi

import (
	"errors"
	"fmt"

	"k8s.io/client-go/discovery"
	"k8s.io/client-go/rest"
	"k8s.io/kube-openapi/pkg/validation/spec"
)

var ErrNoClusterSchema = errors.New("cluster returned no OpenAPI document")

// NewSchemaClient creates a discovery client for the given config.
func NewSchemaClient(cfg *rest.Config) (SchemaClient, error) {
	if cfg == nil {
		return nil, errors.New("config should not be nil")
	}
	client, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}
	return client, nil
}

// FromCluster loads the OpenAPI v2 document served by a cluster.
func FromCluster(client SchemaClient) (*spec.Swagger, error) {
	doc, err := client.OpenAPISchema()
	if err != nil {
		return nil, fmt.Errorf("failed to get OpenAPI schema: %w", err)
	}
	if doc == nil {
		return nil, ErrNoClusterSchema
	}
	data, err := doc.YAMLValue("")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize OpenAPI schema: %w", err)
	}
	return Parse(data)
}
