package resource

import (
	"maps"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/kube-openapi/pkg/validation/spec"
)

// fields that are synthesized by the construct or owned by the server.
var nonConfigurableFields = []string{"apiVersion", "kind", "status"}

// BaseName derives the unit base name, e.g. apps-deployment-v1 or pod-v1.
func BaseName(gvk schema.GroupVersionKind) string {
	var prefix string
	if gvk.Group != "" {
		prefix = strings.ReplaceAll(strings.ToLower(gvk.Group), ".", "-") + "-"
	}
	return prefix + strings.ToLower(gvk.Kind) + "-" + strings.ToLower(gvk.Version)
}

func OptionsTypeName(gvk schema.GroupVersionKind) string {
	return gvk.Kind + "Options"
}

func SourceFileName(gvk schema.GroupVersionKind, ext string) string {
	return BaseName(gvk) + ext
}

// APIVersion returns group/version, or only the version for the core group.
func APIVersion(gvk schema.GroupVersionKind) string {
	return gvk.GroupVersion().String()
}

// OptionsView returns a copy of the definition schema without the fields a
// caller must not configure. The definition itself is left untouched.
func OptionsView(def Definition) *spec.Schema {
	view := spec.Schema{}
	if def.Schema != nil {
		view = *def.Schema
	}
	props := make(map[string]spec.Schema, len(view.Properties))
	maps.Copy(props, view.Properties)
	for _, f := range nonConfigurableFields {
		delete(props, f)
	}
	view.Properties = props
	return &view
}
