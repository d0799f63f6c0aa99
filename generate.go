//go:build generate
// +build generate

// regenerate the constructs of the test documents
//go:generate go run ./cmd/generate-constructs --target testdata/constructs/apps --schema testdata/swagger/apps.json
//go:generate go run ./cmd/generate-constructs --target testdata/constructs/widgets --crd testdata/crds/widgets.example.com.yaml

package gen
