package tracing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, ExporterFile, cfg.Exporter)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.Equal(t, DefaultServiceName, cfg.ServiceName)
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	p, err := NewProvider(Config{Enabled: true, Exporter: ExporterFile, FilePath: path})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), SpanSectionLoad)
	require.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	require.FileExists(t, path)
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: ExporterFile})
	require.ErrorContains(t, err, "file_path required")

	_, err = NewProvider(Config{Enabled: true, Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported exporter type: zipkin")
}

func TestNewProvider_NoExporterStillRecords(t *testing.T) {
	p, err := NewProvider(Config{Enabled: true, Exporter: ExporterNone})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	_, span := p.Tracer().Start(context.Background(), "x")
	require.True(t, span.SpanContext().IsValid())
	span.End()
}
