package openapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	apiv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/json"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/kube-openapi/pkg/validation/spec"

	"github.com/bakito/construct-gen/internal/resource"
)

var (
	ErrNoCRD         = errors.New("no CustomResourceDefinition found")
	ErrNotACRD       = errors.New("document is not a CustomResourceDefinition")
	ErrCRDNoVersions = errors.New("CRD has no served versions")
	ErrCRDNoSchema   = errors.New("CRD version has no openAPIV3Schema")
)

// Parse reads a swagger document in JSON or YAML format.
func Parse(data []byte) (*spec.Swagger, error) {
	jsonData, err := yaml.ToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("error converting document to json: %w", err)
	}
	doc := &spec.Swagger{}
	if err := json.Unmarshal(jsonData, doc); err != nil {
		return nil, fmt.Errorf("error parsing swagger document: %w", err)
	}
	return doc, nil
}

func LoadFile(path string) (*spec.Swagger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return Parse(data)
}

// LoadCRDFile reads one or more CRDs from a file.
func LoadCRDFile(path string) (*spec.Swagger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	doc, err := FromCRD(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return doc, nil
}

// FromCRD converts the CRDs of a (multi document) YAML stream into a swagger
// document with one API object definition per served version.
func FromCRD(data []byte) (*spec.Swagger, error) {
	doc := &spec.Swagger{SwaggerProps: spec.SwaggerProps{Definitions: spec.Definitions{}}}

	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096)
	for {
		var crd apiv1.CustomResourceDefinition
		if err := decoder.Decode(&crd); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if crd.Kind == "" && crd.Spec.Names.Kind == "" {
			// empty document
			continue
		}
		if crd.Kind != "CustomResourceDefinition" || crd.Spec.Names.Kind == "" {
			return nil, fmt.Errorf("%w: kind %q", ErrNotACRD, crd.Kind)
		}
		if err := addCRD(doc, &crd); err != nil {
			return nil, err
		}
	}

	if len(doc.Definitions) == 0 {
		return nil, ErrNoCRD
	}
	if _, ok := doc.Definitions[objectMetaKey]; !ok {
		doc.Definitions[objectMetaKey] = objectMeta()
	}
	return doc, nil
}

func addCRD(doc *spec.Swagger, crd *apiv1.CustomResourceDefinition) error {
	var served int
	for _, v := range crd.Spec.Versions {
		if !v.Served {
			continue
		}
		if v.Schema == nil || v.Schema.OpenAPIV3Schema == nil {
			return fmt.Errorf("%w: %s version %s", ErrCRDNoSchema, crd.Name, v.Name)
		}

		s, err := toSchema(v.Schema.OpenAPIV3Schema)
		if err != nil {
			return fmt.Errorf("error converting schema of %s version %s: %w", crd.Name, v.Name, err)
		}

		gvk := schema.GroupVersionKind{Group: crd.Spec.Group, Version: v.Name, Kind: crd.Spec.Names.Kind}
		if s.Extensions == nil {
			s.Extensions = spec.Extensions{}
		}
		s.Extensions[resource.GVKExtensionKey] = []any{
			map[string]any{"group": gvk.Group, "version": gvk.Version, "kind": gvk.Kind},
		}

		if s.Properties == nil {
			s.Properties = map[string]spec.Schema{}
		}
		s.Properties["apiVersion"] = describe(spec.StringProperty(),
			"APIVersion defines the versioned schema of this representation of an object.")
		s.Properties["kind"] = describe(spec.StringProperty(),
			"Kind is a string value representing the REST resource this object represents.")
		s.Properties["metadata"] = spec.Schema{SchemaProps: spec.SchemaProps{
			Ref: spec.MustCreateRef(definitionsRef + objectMetaKey),
		}}

		doc.Definitions[DefinitionKey(gvk)] = *s
		served++
	}
	if served == 0 {
		return fmt.Errorf("%w: %s", ErrCRDNoVersions, crd.Name)
	}
	return nil
}

func toSchema(props *apiv1.JSONSchemaProps) (*spec.Schema, error) {
	b, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	s := &spec.Schema{}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

// DefinitionKey returns the definition name of a kind, e.g. io.cert-manager.v1.Certificate.
func DefinitionKey(gvk schema.GroupVersionKind) string {
	if gvk.Group == "" {
		return fmt.Sprintf("%s.%s", gvk.Version, gvk.Kind)
	}
	parts := strings.Split(gvk.Group, ".")
	slices.Reverse(parts)
	return fmt.Sprintf("%s.%s.%s", strings.Join(parts, "."), gvk.Version, gvk.Kind)
}

// Merge combines the definitions of all documents. A definition present in
// several documents is taken from the first one.
func Merge(docs ...*spec.Swagger) *spec.Swagger {
	merged := &spec.Swagger{SwaggerProps: spec.SwaggerProps{Definitions: spec.Definitions{}}}
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		for _, key := range slices.Sorted(maps.Keys(doc.Definitions)) {
			if _, ok := merged.Definitions[key]; !ok {
				merged.Definitions[key] = doc.Definitions[key]
			}
		}
	}
	return merged
}

func describe(s *spec.Schema, description string) spec.Schema {
	s.Description = description
	return *s
}

// objectMeta is the subset of ObjectMeta used when no Kubernetes API document provides it.
func objectMeta() spec.Schema {
	return spec.Schema{SchemaProps: spec.SchemaProps{
		Type:        spec.StringOrArray{"object"},
		Description: "ObjectMeta is metadata that all persisted resources must have.",
		Properties: map[string]spec.Schema{
			"name": describe(spec.StringProperty(),
				"Name must be unique within a namespace."),
			"namespace": describe(spec.StringProperty(),
				"Namespace defines the space within which each name must be unique."),
			"labels": describe(spec.MapProperty(spec.StringProperty()),
				"Map of string keys and values that can be used to organize and categorize objects."),
			"annotations": describe(spec.MapProperty(spec.StringProperty()),
				"Annotations is an unstructured key value map stored with a resource."),
		},
	}}
}
