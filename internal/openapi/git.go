package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"k8s.io/kube-openapi/pkg/validation/spec"
)

var ErrInvalidGitSource = errors.New("invalid git source")

// cloneRepository is replaced in tests.
var cloneRepository = clone

// FromGit clones the repository of src and loads the swagger document at src.Path.
func FromGit(ctx context.Context, src GitSource) (*spec.Swagger, error) {
	if src.URL == "" || src.Path == "" {
		return nil, fmt.Errorf("%w: url and path are required", ErrInvalidGitSource)
	}

	tmp, err := os.MkdirTemp("", "construct-gen")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	l := slog.With("url", src.URL, "ref", src.Ref, "tmp", tmp)
	l.InfoContext(ctx, "Cloning repository")
	if err := cloneRepository(ctx, src, tmp); err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "Repository cloned successfully!")

	return LoadFile(filepath.Join(tmp, filepath.FromSlash(src.Path)))
}

// clone checks out src.Ref as tag, or as branch if no such tag exists.
func clone(ctx context.Context, src GitSource, dir string) error {
	if src.Ref == "" {
		return cloneRef(ctx, src.URL, "", dir)
	}

	tagErr := cloneRef(ctx, src.URL, plumbing.NewTagReferenceName(src.Ref), dir)
	if tagErr == nil {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	branchErr := cloneRef(ctx, src.URL, plumbing.NewBranchReferenceName(src.Ref), dir)
	if branchErr == nil {
		return nil
	}
	return fmt.Errorf("failed to checkout %s: %w", src.Ref, errors.Join(tagErr, branchErr))
}

func cloneRef(ctx context.Context, url string, ref plumbing.ReferenceName, dir string) error {
	var out bytes.Buffer
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: ref,
		SingleBranch:  true,
		Depth:         1,
		Progress:      &out,
	})
	slog.DebugContext(ctx, "Git clone output", "output", out.String())
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}
