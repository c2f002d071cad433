package report

import (
	"context"
	"fmt"

	"github.com/DrSkyle/leastpriv/pkg/config"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	"github.com/DrSkyle/leastpriv/pkg/storage"
)

// Artifact file names.
const (
	ResultFile    = "suggestions.json"
	PolicyFile    = "policy.json"
	CSVFile       = "suggestions.csv"
	MarkdownFile  = "report.md"
	TerraformFile = "policy.tf"
)

// Write renders every requested format into store and returns the written
// locations. The policy document is always written.
func Write(ctx context.Context, store storage.BlobStore, res *analysis.Result, formats []string, meta Meta) ([]string, error) {
	type artifact struct {
		key    string
		render func() ([]byte, error)
	}
	artifacts := []artifact{{PolicyFile, func() ([]byte, error) { return GeneratePolicy(res.Policy) }}}

	for _, f := range formats {
		switch f {
		case config.FormatJSON:
			artifacts = append(artifacts, artifact{ResultFile, func() ([]byte, error) { return GenerateJSON(res) }})
		case config.FormatCSV:
			artifacts = append(artifacts, artifact{CSVFile, func() ([]byte, error) { return GenerateCSV(res.Permissions) }})
		case config.FormatMarkdown:
			artifacts = append(artifacts, artifact{MarkdownFile, func() ([]byte, error) { return GenerateMarkdown(res, meta) }})
		case config.FormatTerraform:
			artifacts = append(artifacts, artifact{TerraformFile, func() ([]byte, error) { return GenerateTerraform(res.Policy, meta) }})
		default:
			return nil, fmt.Errorf("unknown report format %q", f)
		}
	}

	var written []string
	for _, a := range artifacts {
		data, err := a.render()
		if err != nil {
			return written, fmt.Errorf("render %s: %w", a.key, err)
		}
		if err := store.Put(ctx, a.key, data); err != nil {
			return written, fmt.Errorf("write %s: %w", a.key, err)
		}
		written = append(written, store.Location(a.key))
	}
	return written, nil
}
