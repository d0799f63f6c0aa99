// Package typegen renders TypeScript declarations for OpenAPI schemas.
//
// Types are registered with AddType and rendered by Generate into the open
// unit of a codemaker.Maker, together with every nested object, enum and
// referenced definition they reach. Properties are rendered in sorted order so
// the output is stable for identical input.
package typegen

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/gobuffalo/flect"
	"k8s.io/apimachinery/pkg/util/json"
	"k8s.io/kube-openapi/pkg/validation/spec"

	"github.com/bakito/construct-gen/internal/codemaker"
)

const (
	definitionsPrefix = "#/definitions/"
	extIntOrString    = "x-kubernetes-int-or-string"
)

var (
	ErrUnresolvedRef = errors.New("unresolved schema reference")

	identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

type Generator struct {
	doc   *spec.Swagger
	queue []pending
	names map[string]bool
	refs  map[string]string
}

type pending struct {
	name   string
	schema *spec.Schema
	path   []string
}

// New returns a generator resolving references against doc.
func New(doc *spec.Swagger) *Generator {
	return &Generator{
		doc:   doc,
		names: make(map[string]bool),
		refs:  make(map[string]string),
	}
}

// AddType registers a named schema and returns the name it will be rendered under.
func (g *Generator) AddType(name string, s *spec.Schema) string {
	uniq := g.newUniqTypeName(name, nil)
	g.queue = append(g.queue, pending{name: uniq, schema: s})
	return uniq
}

// Generate renders all registered types and their dependencies.
func (g *Generator) Generate(code *codemaker.Maker) error {
	for first := true; len(g.queue) > 0; first = false {
		p := g.queue[0]
		g.queue = g.queue[1:]
		if !first {
			code.Line()
		}
		if err := g.emitType(code, p); err != nil {
			return fmt.Errorf("error rendering type %s: %w", p.name, err)
		}
	}
	return nil
}

func (g *Generator) emitType(code *codemaker.Maker, p pending) error {
	s := p.schema
	switch {
	case isIntOrString(s):
		emitDoc(code, s.Description, nil)
		code.Line(fmt.Sprintf("export type %s = string | number;", p.name))
		return nil
	case len(s.Properties) > 0:
		return g.emitInterface(code, p)
	case len(s.Enum) > 0:
		emitEnum(code, p.name, s)
		return nil
	}

	t, err := g.typeFor(p, "item", s)
	if err != nil {
		return err
	}
	emitDoc(code, s.Description, nil)
	code.Line(fmt.Sprintf("export type %s = %s;", p.name, t))
	return nil
}

func (g *Generator) emitInterface(code *codemaker.Maker, p pending) error {
	s := p.schema
	emitDoc(code, s.Description, nil)
	code.OpenBlock("export interface " + p.name)

	for i, key := range slices.Sorted(maps.Keys(s.Properties)) {
		prop := s.Properties[key]
		t, err := g.typeFor(p, key, &prop)
		if err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		if i > 0 {
			code.Line()
		}
		emitDoc(code, prop.Description, prop.Default)

		optional := "?"
		if slices.Contains(s.Required, key) {
			optional = ""
		}
		code.Line(fmt.Sprintf("readonly %s%s: %s;", propertyName(key), optional, t))
	}

	code.CloseBlock()
	return nil
}

// typeFor maps a property schema to a type expression, registering nested
// declarations as needed.
func (g *Generator) typeFor(parent pending, key string, s *spec.Schema) (string, error) {
	if ref := s.Ref.String(); ref != "" {
		return g.resolveRef(ref)
	}
	if isIntOrString(s) {
		return "string | number", nil
	}
	if len(s.Properties) > 0 {
		return g.nested(parent, key, s), nil
	}
	if len(s.Enum) > 0 {
		return g.nested(parent, key, s), nil
	}

	var typ string
	if len(s.Type) > 0 {
		typ = s.Type[0]
	}
	switch typ {
	case "string":
		return "string", nil
	case "integer", "number":
		return "number", nil
	case "boolean":
		return "boolean", nil
	case "array":
		if s.Items == nil || s.Items.Schema == nil {
			return "any[]", nil
		}
		item, err := g.typeFor(parent, key, s.Items.Schema)
		if err != nil {
			return "", err
		}
		if strings.Contains(item, " ") {
			item = "(" + item + ")"
		}
		return item + "[]", nil
	case "object":
		if s.AdditionalProperties != nil && s.AdditionalProperties.Schema != nil {
			value, err := g.typeFor(parent, key, s.AdditionalProperties.Schema)
			if err != nil {
				return "", err
			}
			return "{ [key: string]: " + value + " }", nil
		}
		return "any", nil
	default:
		// untyped and preserve-unknown-fields schemas
		return "any", nil
	}
}

func (g *Generator) nested(parent pending, key string, s *spec.Schema) string {
	path := append(slices.Clone(parent.path), key)
	name := g.newUniqTypeName(parent.name+flect.Pascalize(key), path)
	g.queue = append(g.queue, pending{name: name, schema: s, path: path})
	return name
}

func (g *Generator) resolveRef(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, definitionsPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedRef, ref)
	}
	if name, ok := g.refs[key]; ok {
		return name, nil
	}
	if g.doc == nil {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedRef, ref)
	}
	def, ok := g.doc.Definitions[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedRef, ref)
	}

	segments := strings.Split(key, ".")
	name := g.newUniqTypeName(flect.Pascalize(segments[len(segments)-1]), segments[:len(segments)-1])
	g.refs[key] = name
	g.queue = append(g.queue, pending{name: name, schema: &def})
	return name, nil
}

// newUniqTypeName reserves a type name. On collision the name is prefixed with
// path segments, starting with the innermost, and finally suffixed with a hash.
func (g *Generator) newUniqTypeName(candidate string, path []string) string {
	name := ToIdentifier(candidate)
	if g.reserve(name) {
		return name
	}

	var prefix string
	for i := len(path) - 1; i >= 0; i-- {
		prefix = ToIdentifier(flect.Pascalize(path[i])) + prefix
		if g.reserve(prefix + name) {
			return prefix + name
		}
	}

	hash := md5.Sum([]byte(strings.Join(append(slices.Clone(path), name), ".")))
	base := name + "_" + hex.EncodeToString(hash[:])
	uniq := base
	for i := 2; !g.reserve(uniq); i++ {
		uniq = fmt.Sprintf("%s%d", base, i)
	}
	return uniq
}

func (g *Generator) reserve(name string) bool {
	if g.names[name] {
		return false
	}
	g.names[name] = true
	return true
}

func isIntOrString(s *spec.Schema) bool {
	if s.Format == "int-or-string" {
		return true
	}
	v, ok := s.Extensions[extIntOrString].(bool)
	return ok && v
}

func emitEnum(code *codemaker.Maker, name string, s *spec.Schema) {
	emitDoc(code, s.Description, nil)

	values := make([]string, 0, len(s.Enum))
	for _, e := range s.Enum {
		v, ok := e.(string)
		if !ok {
			// non-string enums become a union of literals
			code.Line(fmt.Sprintf("export type %s = %s;", name, literalUnion(s.Enum)))
			return
		}
		values = append(values, v)
	}

	code.OpenBlock("export enum " + name)
	used := make(map[string]bool)
	for _, v := range values {
		member := enumMemberName(v)
		for i := 2; used[member]; i++ {
			member = fmt.Sprintf("%s%d", enumMemberName(v), i)
		}
		used[member] = true
		code.Line(fmt.Sprintf("%s = %s,", member, quote(v)))
	}
	code.CloseBlock()
}

func literalUnion(values []any) string {
	literals := make([]string, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			literals = append(literals, "any")
			continue
		}
		literals = append(literals, string(b))
	}
	return strings.Join(literals, " | ")
}

func emitDoc(code *codemaker.Maker, description string, def any) {
	if description == "" && def == nil {
		return
	}
	code.Line("/**")
	if description != "" {
		for _, l := range strings.Split(description, "\n") {
			code.Line(strings.TrimRight(" * "+strings.ReplaceAll(l, "*/", "*\\/"), " "))
		}
	}
	if def != nil {
		if b, err := json.Marshal(def); err == nil {
			if description != "" {
				code.Line(" *")
			}
			code.Line(" * @default " + string(b))
		}
	}
	code.Line(" */")
}

func propertyName(key string) string {
	if identifierPattern.MatchString(key) {
		return key
	}
	return quote(key)
}

func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`).Replace(s) + "'"
}

func enumMemberName(value string) string {
	name := ToCamelCase(value)
	if name == "" {
		return "Empty"
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "Value" + name
	}
	return name
}
