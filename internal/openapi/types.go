package openapi

import (
	openapi_v2 "github.com/google/gnostic-models/openapiv2"
)

const (
	definitionsRef = "#/definitions/"
	objectMetaKey  = "io.k8s.apimachinery.pkg.apis.meta.v1.ObjectMeta"
)

// SchemaClient provides the OpenAPI v2 document of a cluster, e.g. a client-go discovery client.
type SchemaClient interface {
	OpenAPISchema() (*openapi_v2.Document, error)
}

// GitSource locates a swagger document within a git repository.
type GitSource struct {
	URL string
	// Ref is a tag or branch name; the default branch is used if empty.
	Ref string
	// Path of the document within the repository.
	Path string
}
