package resource

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/json"
	"k8s.io/kube-openapi/pkg/validation/spec"
)

// GVKExtensionKey marks a definition as an addressable API resource.
const GVKExtensionKey = "x-kubernetes-group-version-kind"

var (
	ErrMissingIdentity = errors.New("definition has no " + GVKExtensionKey + " identity")
	ErrInvalidIdentity = errors.New("definition has an invalid " + GVKExtensionKey + " identity")
)

type groupVersionKind struct {
	Group   string `json:"group"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
}

// Definition is a named schema node of a swagger document.
type Definition struct {
	Name   string
	Schema *spec.Schema
}

// Find returns all definitions carrying a non-empty group/version/kind annotation,
// ordered by definition name.
func Find(doc *spec.Swagger) []Definition {
	var result []Definition
	if doc == nil {
		return result
	}
	for _, name := range slices.Sorted(maps.Keys(doc.Definitions)) {
		s := doc.Definitions[name]
		def := Definition{Name: name, Schema: &s}
		if gvks, err := Identities(def); err != nil || len(gvks) == 0 {
			continue
		}
		result = append(result, def)
	}
	return result
}

// Identities decodes every identity attached to the definition.
func Identities(def Definition) ([]schema.GroupVersionKind, error) {
	if def.Schema == nil || def.Schema.Extensions == nil {
		return nil, ErrMissingIdentity
	}
	raw, ok := def.Schema.Extensions[GVKExtensionKey]
	if !ok || raw == nil {
		return nil, ErrMissingIdentity
	}

	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	var decoded []groupVersionKind
	if err := json.Unmarshal(jsonBytes, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	if len(decoded) == 0 {
		return nil, ErrMissingIdentity
	}

	gvks := make([]schema.GroupVersionKind, 0, len(decoded))
	for _, d := range decoded {
		gvks = append(gvks, schema.GroupVersionKind{Group: d.Group, Version: d.Version, Kind: d.Kind})
	}
	return gvks, nil
}

// Identity returns the first identity of the definition. Additional identities
// expose the same kind under other group versions and are ignored, so every
// definition yields at most one construct.
func Identity(def Definition) (schema.GroupVersionKind, error) {
	gvks, err := Identities(def)
	if err != nil {
		return schema.GroupVersionKind{}, err
	}
	gvk := gvks[0]
	if gvk.Kind == "" || gvk.Version == "" {
		return schema.GroupVersionKind{}, fmt.Errorf("%w: kind and version are required, got %q", ErrInvalidIdentity, gvk.String())
	}
	return gvk, nil
}

// HasMetadata reports whether the definition declares a metadata property.
func HasMetadata(def Definition) bool {
	if def.Schema == nil {
		return false
	}
	_, ok := def.Schema.Properties["metadata"]
	return ok
}
