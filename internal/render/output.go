package render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"k8s.io/kube-openapi/pkg/validation/spec"

	"github.com/bakito/construct-gen/internal/codemaker"
	"github.com/bakito/construct-gen/internal/construct"
	"github.com/bakito/construct-gen/internal/resource"
)

var ErrNoTarget = errors.New("target directory must be defined")

type Options struct {
	// Target is the directory the generated units are written to.
	Target string
	// ContinueOnError attempts every resource and reports all failures together.
	ContinueOnError bool
	Config          construct.Config
}

// Summary lists what happened to every discovered resource.
type Summary struct {
	Emitted []construct.Result
	Skipped []construct.Result
	Failed  int
}

// WriteConstructs emits one construct per API object definition of doc and
// writes the committed units to opts.Target. Nothing is written if a failure
// aborts the run; with ContinueOnError the successfully emitted units are
// written and the failures are returned together.
func WriteConstructs(doc *spec.Swagger, opts Options) (*Summary, error) {
	if opts.Target == "" {
		return nil, ErrNoTarget
	}

	code := codemaker.New()
	emitter := construct.NewEmitter(opts.Config)
	summary := &Summary{}

	var result *multierror.Error
	for _, def := range resource.Find(doc) {
		res, err := emitter.Emit(code, doc, def)
		if err != nil {
			summary.Failed++
			slog.With("definition", def.Name, "error", err).Error("Failed to generate construct")
			if !opts.ContinueOnError {
				return summary, err
			}
			result = multierror.Append(result, err)
			continue
		}

		switch res.Outcome {
		case construct.Emitted:
			summary.Emitted = append(summary.Emitted, res)
		case construct.Skipped:
			summary.Skipped = append(summary.Skipped, res)
		}
	}

	if err := code.Save(opts.Target); err != nil {
		return summary, fmt.Errorf("error writing constructs: %w", err)
	}

	slog.With(
		"target", opts.Target,
		"emitted", len(summary.Emitted),
		"skipped", len(summary.Skipped),
		"failed", summary.Failed,
	).Info("Finished generating constructs")

	return summary, result.ErrorOrNil()
}
