package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/tracing"
)

// ErrNoManifest is wrapped by the configuration error Discover returns when
// no candidate location yields a manifest.
var ErrNoManifest = errors.New("failed to load .almostacms.json configuration from any location")

// ManifestCandidates lists where the manifest is looked for, in order. The
// site root always comes first. A CMS deployed under a sub-path also tries
// the directory above it.
func ManifestCandidates(basePath string) []string {
	out := []string{"/" + site.ManifestFile}
	if basePath == "" || basePath == "/" {
		return out
	}
	base := basePath
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if alt := site.Clean(base + "../" + site.ManifestFile); alt != out[0] {
		out = append(out, alt)
	}
	return out
}

// Discover fetches and parses the manifest from the first candidate that
// works. A candidate that cannot be fetched or parsed is skipped. Parse
// warnings from the winning manifest are returned alongside it.
func (l *Loader) Discover(ctx context.Context, basePath string) (site.Manifest, []error, error) {
	ctx, span := l.tracer.Start(ctx, tracing.SpanDiscover)
	defer span.End()

	var failures []error
	for _, p := range ManifestCandidates(basePath) {
		data, err := l.src.Fetch(ctx, p)
		if err == nil {
			m, warnings, perr := site.ParseManifest(data)
			if perr == nil {
				log.Info(log.CatSections, "manifest loaded", "path", p, "sections", len(m.Sections))
				for _, w := range warnings {
					log.Warn(log.CatSections, "manifest warning", "path", p, "warning", w)
				}
				return m, warnings, nil
			}
			err = perr
		}
		if ctx.Err() != nil {
			return site.Manifest{}, nil, ctx.Err()
		}
		log.Debug(log.CatSections, "manifest candidate failed", "path", p, "error", err)
		span.AddEvent(tracing.EventCandidateFailed, trace.WithAttributes(attribute.String("path", p)))
		failures = append(failures, fmt.Errorf("%s: %w", p, err))
	}

	err := domain.ConfigurationError("discover", fmt.Errorf("%w: %w", ErrNoManifest, errors.Join(failures...)))
	span.SetStatus(codes.Error, ErrNoManifest.Error())
	log.ErrorErr(log.CatSections, "no manifest found", err, "base", basePath)
	return site.Manifest{}, nil, err
}
