package loader

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/sections"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/tracing"
)

// ErrMissingData is reported, as a warning, for a required section whose
// data file does not exist.
var ErrMissingData = errors.New("required section data file is missing")

// LoadedSection is a manifest entry joined with its registry definition.
type LoadedSection struct {
	site.SectionConfig
	Definition *sections.Definition
}

// Title is the label shown in the section list.
func (s LoadedSection) Title() string { return s.Label }

// Result is the outcome of LoadSections. Warnings never stop loading.
type Result struct {
	Sections []LoadedSection
	Warnings []error
}

// LoadSections resolves the manifest's entries against the registry.
//
// Hidden entries are dropped. Unregistered ones are dropped with an
// unknown-section warning. Each survivor takes its label from the manifest,
// or the definition name, and the list is stably sorted by order. Required
// sections whose data file cannot be fetched only produce a warning.
func (l *Loader) LoadSections(ctx context.Context, m site.Manifest) Result {
	ctx, span := l.tracer.Start(ctx, tracing.SpanLoadAll)
	defer span.End()

	var res Result
	for _, sc := range m.Sections {
		if sc.Hidden {
			continue
		}
		def, ok := l.lookup.Resolve(sc.ID)
		if !ok {
			err := domain.UnknownSectionError("load sections", sc.ID)
			log.Warn(log.CatSections, "skipping unregistered section", "section", sc.ID)
			span.AddEvent(tracing.EventSectionSkipped, trace.WithAttributes(attribute.String(tracing.AttrSectionID, sc.ID)))
			res.Warnings = append(res.Warnings, err)
			continue
		}
		if sc.Label == "" {
			sc.Label = def.Name()
		}
		res.Sections = append(res.Sections, LoadedSection{SectionConfig: sc, Definition: def})
	}

	slices.SortStableFunc(res.Sections, func(a, b LoadedSection) int {
		return cmp.Compare(a.Order, b.Order)
	})

	for _, s := range res.Sections {
		if !s.Required {
			continue
		}
		if _, err := l.src.Fetch(ctx, site.DataPath(s.DataFile)); err != nil {
			w := fmt.Errorf("%s (%s): %w: %w", s.ID, s.DataFile, ErrMissingData, err)
			log.Warn(log.CatSections, "required section has no data", "section", s.ID, "file", s.DataFile, "error", err)
			res.Warnings = append(res.Warnings, w)
		}
	}

	span.SetAttributes(attribute.Int(tracing.AttrSectionCount, len(res.Sections)))
	log.Info(log.CatSections, "sections loaded", "count", len(res.Sections), "warnings", len(res.Warnings))
	return res
}

// Find returns the loaded section whose data file is name, with or without
// the .json extension.
func Find(loaded []LoadedSection, name string) (LoadedSection, bool) {
	file := name
	if !strings.HasSuffix(file, ".json") {
		file += ".json"
	}
	for _, s := range loaded {
		if s.DataFile == file {
			return s, true
		}
	}
	return LoadedSection{}, false
}

// ByID returns the loaded section with the given id.
func ByID(loaded []LoadedSection, id string) (LoadedSection, bool) {
	for _, s := range loaded {
		if s.ID == id {
			return s, true
		}
	}
	return LoadedSection{}, false
}
