package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/specsource"
)

// loadDocument reads the spec named by the configured location.
func (a *App) loadDocument(ctx context.Context) (*spec.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading scene spec...", "location", a.config.SpecLocation, "extract", a.config.Extract)

	s3 := a.model.S3
	loader := specsource.NewLoader(
		specsource.WithStdin(a.stdin),
		specsource.WithExtract(a.config.Extract),
		specsource.WithS3Config(specsource.S3Config{
			Region:          s3.Region,
			Endpoint:        s3.Endpoint,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
			UsePathStyle:    s3.UsePathStyle,
		}),
	)
	doc, err := loader.Load(ctx, a.config.SpecLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene spec: %w", err)
	}
	logger.Info("Scene spec loaded.", "location", a.config.SpecLocation, "bytes", len(doc.Raw))
	return doc, nil
}
