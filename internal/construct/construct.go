package construct

import (
	"fmt"
	"log/slog"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/kube-openapi/pkg/validation/spec"

	"github.com/bakito/construct-gen/internal/codemaker"
	"github.com/bakito/construct-gen/internal/resource"
	"github.com/bakito/construct-gen/internal/typegen"
)

type Outcome int

const (
	Emitted Outcome = iota
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Emitted:
		return "emitted"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes a construct generation that did not fail.
type Result struct {
	Outcome    Outcome
	Definition string
	GVK        schema.GroupVersionKind
	// File is the generated unit, empty when skipped.
	File string
	// Reason explains a skip.
	Reason string
}

// Import is a named import of a generated unit.
type Import struct {
	Name   string
	Module string
}

func (i Import) String() string {
	return fmt.Sprintf("import { %s } from '%s';", i.Name, i.Module)
}

type Config struct {
	// Base is the type every construct extends.
	Base Import
	// Scope is the type of the construct's scope parameter.
	Scope         Import
	Banner        string
	FileExtension string
}

func DefaultConfig() Config {
	return Config{
		Base:          Import{Name: "ApiObject", Module: "cdk8s"},
		Scope:         Import{Name: "Construct", Module: "constructs"},
		Banner:        "// generated by construct-gen",
		FileExtension: ".ts",
	}
}

type Emitter struct {
	cfg Config
}

func NewEmitter(cfg Config) *Emitter {
	return &Emitter{cfg: cfg}
}

// Emit writes the construct of an API object definition as one unit of code.
// Definitions without a metadata property are skipped.
func (e *Emitter) Emit(code *codemaker.Maker, doc *spec.Swagger, def resource.Definition) (Result, error) {
	gvk, err := resource.Identity(def)
	if err != nil {
		return Result{}, fmt.Errorf("definition %q: %w", def.Name, err)
	}

	baseName := resource.BaseName(gvk)
	res := Result{Definition: def.Name, GVK: gvk}

	if !resource.HasMetadata(def) {
		res.Outcome = Skipped
		res.Reason = `no "metadata" property`
		slog.With("definition", def.Name, "name", baseName).Warn("Skipping resource without metadata")
		return res, nil
	}

	file := resource.SourceFileName(gvk, e.cfg.FileExtension)
	optionsName := resource.OptionsTypeName(gvk)

	unit, err := code.OpenFile(file)
	if err != nil {
		return Result{}, fmt.Errorf("error opening %s: %w", file, err)
	}
	defer unit.Discard()

	code.Line(e.cfg.Banner)
	code.Line()
	code.Line(e.cfg.Base.String())
	code.Line(e.cfg.Scope.String())
	code.Line()

	types := typegen.New(doc)
	types.AddType(optionsName, resource.OptionsView(def))

	e.emitConstruct(code, def, gvk, optionsName)
	code.Line()

	if err := types.Generate(code); err != nil {
		return Result{}, fmt.Errorf("error generating types of %s: %w", file, err)
	}
	if err := unit.Close(); err != nil {
		return Result{}, fmt.Errorf("error closing %s: %w", file, err)
	}

	res.Outcome = Emitted
	res.File = file
	return res, nil
}

func (e *Emitter) emitConstruct(code *codemaker.Maker, def resource.Definition, gvk schema.GroupVersionKind, optionsName string) {
	code.Line("/**")
	for _, l := range strings.Split(def.Schema.Description, "\n") {
		code.Line(strings.TrimRight(" * "+strings.ReplaceAll(l, "*/", "*\\/"), " "))
	}
	code.Line(" */")
	code.OpenBlock(fmt.Sprintf("export class %s extends %s", gvk.Kind, e.cfg.Base.Name))

	code.OpenBlock(fmt.Sprintf("public constructor(scope: %s, ns: string, options: %s)", e.cfg.Scope.Name, optionsName))
	// kind and apiVersion follow the spread so options can not override them
	code.Open("super(scope, ns, {")
	code.Line("...options,")
	code.Line(fmt.Sprintf("kind: '%s',", gvk.Kind))
	code.Line(fmt.Sprintf("apiVersion: '%s',", resource.APIVersion(gvk)))
	code.Close("});")
	code.CloseBlock()

	code.CloseBlock()
}
