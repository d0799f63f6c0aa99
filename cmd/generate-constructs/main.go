package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/kube-openapi/pkg/validation/spec"
	"sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/bakito/construct-gen/internal/construct"
	"github.com/bakito/construct-gen/internal/openapi"
	"github.com/bakito/construct-gen/internal/render"
)

const envPrefix = "CONSTRUCT_GEN"

const (
	flagSchema      = "schema"
	flagCRD         = "crd"
	flagFromCluster = "from-cluster"
	flagGitURL      = "git-url"
	flagGitRef      = "git-ref"
	flagGitPath     = "git-path"
	flagTarget      = "target"
	flagFailFast    = "fail-fast"
	flagBaseImport  = "base-import"
	flagBaseModule  = "base-module"
	flagScopeImport = "scope-import"
	flagScopeModule = "scope-module"
	flagConfig      = "config"
)

var (
	errNoSource = errors.New("at least one schema source must be defined")
	errNoTarget = errors.New("target must be defined")
)

// replaced in tests
var (
	getConfig       = config.GetConfig
	newSchemaClient = openapi.NewSchemaClient
	loadGit         = openapi.FromGit
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	defaults := construct.DefaultConfig()

	cmd := &cobra.Command{
		Use:          "generate-constructs",
		Short:        "Generate typed constructs for the API objects of an OpenAPI document",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	cmd.Flags().StringSlice(flagSchema, nil, "Swagger / OpenAPI v2 document (json or yaml) to process")
	cmd.Flags().StringSlice(flagCRD, nil, "CRD file to process")
	cmd.Flags().Bool(flagFromCluster, false, "Read the OpenAPI document of the current kubeconfig context")
	cmd.Flags().String(flagGitURL, "", "Git repository to read a swagger document from")
	cmd.Flags().String(flagGitRef, "", "Tag or branch of the git repository")
	cmd.Flags().String(flagGitPath, "", "Path of the swagger document within the git repository")
	cmd.Flags().StringP(flagTarget, "t", "", "The target directory to write the constructs to")
	cmd.Flags().Bool(flagFailFast, false, "Abort at the first resource that can not be generated")
	cmd.Flags().String(flagBaseImport, defaults.Base.Name, "Name of the type every construct extends")
	cmd.Flags().String(flagBaseModule, defaults.Base.Module, "Module the base type is imported from")
	cmd.Flags().String(flagScopeImport, defaults.Scope.Name, "Name of the scope type")
	cmd.Flags().String(flagScopeModule, defaults.Scope.Module, "Module the scope type is imported from")
	cmd.Flags().StringP(flagConfig, "c", "", "Config file")

	_ = v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	if cfgFile := v.GetString(flagConfig); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	if v.GetString(flagTarget) == "" {
		return errNoTarget
	}

	doc, err := loadDocument(ctx, v)
	if err != nil {
		return err
	}

	cfg := construct.DefaultConfig()
	cfg.Base = construct.Import{Name: v.GetString(flagBaseImport), Module: v.GetString(flagBaseModule)}
	cfg.Scope = construct.Import{Name: v.GetString(flagScopeImport), Module: v.GetString(flagScopeModule)}

	summary, err := render.WriteConstructs(doc, render.Options{
		Target:          v.GetString(flagTarget),
		ContinueOnError: !v.GetBool(flagFailFast),
		Config:          cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to generate constructs: %w", err)
	}
	for _, s := range summary.Skipped {
		slog.With("definition", s.Definition, "reason", s.Reason).DebugContext(ctx, "Skipped resource")
	}
	return nil
}

// loadDocument merges all configured sources. API documents are merged before
// CRDs so their ObjectMeta takes precedence over the minimal one of a CRD.
func loadDocument(ctx context.Context, v *viper.Viper) (*spec.Swagger, error) {
	var docs []*spec.Swagger

	for _, file := range v.GetStringSlice(flagSchema) {
		slog.With("file", file).InfoContext(ctx, "Loading schema")
		doc, err := openapi.LoadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema %s: %w", file, err)
		}
		docs = append(docs, doc)
	}

	if url := v.GetString(flagGitURL); url != "" {
		doc, err := loadGit(ctx, openapi.GitSource{
			URL:  url,
			Ref:  v.GetString(flagGitRef),
			Path: v.GetString(flagGitPath),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load schema from git: %w", err)
		}
		docs = append(docs, doc)
	}

	if v.GetBool(flagFromCluster) {
		doc, err := loadCluster(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	for _, file := range v.GetStringSlice(flagCRD) {
		slog.With("file", file).InfoContext(ctx, "Loading CRD")
		doc, err := openapi.LoadCRDFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load CRDs: %w", err)
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, errNoSource
	}
	return openapi.Merge(docs...), nil
}

func loadCluster(ctx context.Context) (*spec.Swagger, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig: %w", err)
	}
	slog.With("host", cfg.Host).InfoContext(ctx, "Loading schema from cluster")
	client, err := newSchemaClient(cfg)
	if err != nil {
		return nil, err
	}
	doc, err := openapi.FromCluster(client)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema from cluster: %w", err)
	}
	return doc, nil
}
