package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	openapi_v2 "github.com/google/gnostic-models/openapiv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/rest"
	"k8s.io/kube-openapi/pkg/validation/spec"

	"github.com/bakito/construct-gen/internal/openapi"
)

var update = flag.Bool("update", false, "update golden files")

type fakeSchemaClient struct {
	doc *openapi_v2.Document
}

func (f *fakeSchemaClient) OpenAPISchema() (*openapi_v2.Document, error) {
	return f.doc, nil
}

func TestGenerateConstructsE2E(t *testing.T) {
	tempDir := t.TempDir()

	wd, err := os.Getwd()
	require.NoError(t, err)
	testdata := filepath.Join(wd, "..", "..", "testdata")
	appsSchema := filepath.Join(testdata, "swagger", "apps.json")
	widgetsCRD := filepath.Join(testdata, "crds", "widgets.example.com.yaml")

	configFile := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("schema:\n  - "+appsSchema+"\nscope-module: '@aws-cdk/core'\n"), 0o644))

	targetConfigFile := filepath.Join(tempDir, "target-config.yaml")
	require.NoError(t, os.WriteFile(targetConfigFile,
		[]byte("schema:\n  - "+appsSchema+"\ntarget: "+filepath.Join(tempDir, "target_from_config_file")+"\n"), 0o644))

	testCases := []struct {
		name               string
		args               []string
		noTargetFlag       bool
		env                map[string]string
		wantErrMsg         string
		expectedFiles      []string
		unexpectedFiles    []string
		fileContentChecks  map[string][]string
		expectedFileGolden map[string]string
	}{
		{
			name:       "no_source_defined",
			args:       []string{},
			wantErrMsg: `at least one schema source must be defined`,
		},
		{
			name:         "target_not_defined",
			args:         []string{"--schema", appsSchema},
			noTargetFlag: true,
			wantErrMsg:   `target must be defined`,
		},
		{
			name:         "target_from_env",
			args:         []string{"--schema", appsSchema},
			noTargetFlag: true,
			env:          map[string]string{"CONSTRUCT_GEN_TARGET": filepath.Join(tempDir, "target_from_env")},
			expectedFiles: []string{
				"apps-deployment-v1.ts",
				"configmap-v1.ts",
			},
		},
		{
			name:         "target_from_config_file",
			args:         []string{"--config", targetConfigFile},
			noTargetFlag: true,
			expectedFiles: []string{
				"apps-deployment-v1.ts",
			},
		},
		{
			name: "swagger",
			args: []string{"--schema", appsSchema},
			unexpectedFiles: []string{
				"watchevent-v1.ts",
				"apps-watchevent-v1.ts",
			},
			expectedFileGolden: map[string]string{
				"apps-deployment-v1.ts": filepath.Join(testdata, "expected", "apps", "apps-deployment-v1.ts.txt"),
				"configmap-v1.ts":       filepath.Join(testdata, "expected", "apps", "configmap-v1.ts.txt"),
			},
		},
		{
			name: "crd",
			args: []string{"--crd", widgetsCRD},
			expectedFiles: []string{
				"example-com-widget-v1alpha1.ts",
				"example-com-gadget-v1.ts",
			},
			unexpectedFiles: []string{"example-com-widget-v0.ts"},
			fileContentChecks: map[string][]string{
				"example-com-widget-v1alpha1.ts": {
					"export class Widget extends ApiObject {",
					"apiVersion: 'example.com/v1alpha1',",
				},
				"example-com-gadget-v1.ts": {
					"export class Gadget extends ApiObject {",
					"readonly enabled?: boolean;",
				},
			},
			expectedFileGolden: map[string]string{
				"example-com-widget-v1.ts": filepath.Join(testdata, "expected", "widgets", "example-com-widget-v1.ts.txt"),
			},
		},
		{
			name: "swagger_and_crd",
			args: []string{"--crd", widgetsCRD, "--schema", appsSchema},
			expectedFiles: []string{
				"apps-deployment-v1.ts",
				"configmap-v1.ts",
				"example-com-widget-v1.ts",
			},
			fileContentChecks: map[string][]string{
				// the full ObjectMeta of the API document wins over the one of the CRD
				"example-com-widget-v1.ts": {"export interface ObjectMeta {\n  readonly labels?"},
			},
		},
		{
			name:       "invalid_crd",
			args:       []string{"--crd", filepath.Join(testdata, "crds", "configmap.yaml")},
			wantErrMsg: "failed to load CRDs",
		},
		{
			name:       "missing_schema",
			args:       []string{"--schema", filepath.Join(testdata, "does-not-exist.json")},
			wantErrMsg: "failed to load schema",
		},
		{
			name: "custom_imports",
			args: []string{
				"--schema", appsSchema,
				"--base-import", "Resource",
				"--base-module", "@example/base",
				"--scope-import", "Scope",
				"--scope-module", "@example/scope",
			},
			fileContentChecks: map[string][]string{
				"configmap-v1.ts": {
					"import { Resource } from '@example/base';\nimport { Scope } from '@example/scope';\n",
					"export class ConfigMap extends Resource {",
					"public constructor(scope: Scope, ns: string, options: ConfigMapOptions) {",
				},
			},
		},
		{
			name: "env",
			args: []string{"--crd", widgetsCRD},
			env:  map[string]string{"CONSTRUCT_GEN_BASE_MODULE": "cdk8s-plus"},
			fileContentChecks: map[string][]string{
				"example-com-gadget-v1.ts": {"import { ApiObject } from 'cdk8s-plus';"},
			},
		},
		{
			name: "config_file",
			args: []string{"--config", configFile},
			fileContentChecks: map[string][]string{
				"configmap-v1.ts": {"import { Construct } from '@aws-cdk/core';"},
			},
		},
		{
			name:       "invalid_config_file",
			args:       []string{"--config", filepath.Join(testdata, "does-not-exist.yaml")},
			wantErrMsg: "failed to read config",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			targetDir := filepath.Join(tempDir, tc.name)
			require.NoError(t, os.Mkdir(targetDir, 0o755))

			rootCmd := newRootCmd()
			b := new(bytes.Buffer)
			rootCmd.SetOut(b)
			rootCmd.SetErr(b)

			finalArgs := tc.args
			if !tc.noTargetFlag {
				finalArgs = append(finalArgs, "--target", targetDir)
			}
			rootCmd.SetArgs(finalArgs)

			err := rootCmd.Execute()

			if tc.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErrMsg)
				return
			}
			require.NoError(t, err)

			for _, file := range tc.expectedFiles {
				assert.FileExists(t, filepath.Join(targetDir, file))
			}
			for _, file := range tc.unexpectedFiles {
				assert.NoFileExists(t, filepath.Join(targetDir, file))
			}

			for file, contents := range tc.fileContentChecks {
				data, err := os.ReadFile(filepath.Join(targetDir, file))
				require.NoError(t, err)
				for _, content := range contents {
					assert.Contains(t, string(data), content)
				}
			}

			for genFile, goldenFile := range tc.expectedFileGolden {
				generated, err := os.ReadFile(filepath.Join(targetDir, genFile))
				require.NoError(t, err)

				if *update {
					require.NoError(t, os.MkdirAll(filepath.Dir(goldenFile), 0o755))
					require.NoError(t, os.WriteFile(goldenFile, generated, 0o644))
				}

				expected, err := os.ReadFile(goldenFile)
				require.NoError(t, err)

				assert.Equal(
					t,
					string(expected),
					string(generated),
					"generated file %s does not match golden file %s",
					genFile,
					goldenFile,
				)
			}
		})
	}
}

func TestGenerateConstructsFromCluster(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "swagger", "apps.json"))
	require.NoError(t, err)
	served, err := openapi_v2.ParseDocument(data)
	require.NoError(t, err)

	origConfig, origClient := getConfig, newSchemaClient
	t.Cleanup(func() { getConfig, newSchemaClient = origConfig, origClient })

	t.Run("success", func(t *testing.T) {
		getConfig = func() (*rest.Config, error) { return &rest.Config{Host: "https://127.0.0.1:6443"}, nil }
		newSchemaClient = func(*rest.Config) (openapi.SchemaClient, error) {
			return &fakeSchemaClient{doc: served}, nil
		}

		target := t.TempDir()
		rootCmd := newRootCmd()
		rootCmd.SetArgs([]string{"--from-cluster", "--target", target})
		require.NoError(t, rootCmd.Execute())

		assert.FileExists(t, filepath.Join(target, "apps-deployment-v1.ts"))
		assert.FileExists(t, filepath.Join(target, "configmap-v1.ts"))
	})

	t.Run("no kubeconfig", func(t *testing.T) {
		getConfig = func() (*rest.Config, error) { return nil, errors.New("no kubeconfig") }

		rootCmd := newRootCmd()
		rootCmd.SetArgs([]string{"--from-cluster", "--target", t.TempDir()})
		err := rootCmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get kubeconfig")
	})
}

func TestGenerateConstructsFromGit(t *testing.T) {
	origGit := loadGit
	t.Cleanup(func() { loadGit = origGit })

	var got openapi.GitSource
	loadGit = func(_ context.Context, src openapi.GitSource) (*spec.Swagger, error) {
		got = src
		return openapi.LoadFile(filepath.Join("..", "..", "testdata", "swagger", "apps.json"))
	}

	target := t.TempDir()
	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{
		"--git-url", "https://github.com/kubernetes/kubernetes.git",
		"--git-ref", "v1.30.0",
		"--git-path", "api/openapi-spec/swagger.json",
		"--target", target,
	})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, openapi.GitSource{
		URL:  "https://github.com/kubernetes/kubernetes.git",
		Ref:  "v1.30.0",
		Path: "api/openapi-spec/swagger.json",
	}, got)
	assert.FileExists(t, filepath.Join(target, "apps-deployment-v1.ts"))
}
