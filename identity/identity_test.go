// Copyright © 2024 The ELPS authors

package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/luthersystems/elpsclosure/elpstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const workerEnv = "ELPSCLOSURE_TEST_IDENTIFY_WORKER"

// TestMain lets the test binary act as the identify worker.
func TestMain(m *testing.M) {
	if os.Getenv(workerEnv) == "1" {
		if err := ServeWorker(os.Stdin, os.Stdout); err != nil {
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func testProber() *ProcessProber {
	return &ProcessProber{
		Path: os.Args[0],
		Args: []string{WorkerCommand},
		Env:  append(os.Environ(), workerEnv+"=1"),
	}
}

func TestFileName(t *testing.T) {
	paths := []string{
		"/a/libfoo.so",
		"/b/libfoo.so",
		"/b/libfoo.dll",
		"/c/libFoo.so",
		"",
		"/",
		"/a/libbar.so",
	}
	got := FileName{}.Dedupe(context.Background(), paths)
	assert.Equal(t, []string{"/a/libfoo.so", "/c/libFoo.so", "/a/libbar.so"}, got)

	// Deduplication is idempotent.
	assert.Equal(t, got, FileName{}.Dedupe(context.Background(), got))
	assert.Nil(t, FileName{}.Dedupe(context.Background(), nil))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"libz.so.1", "libz"},
		{"/usr/lib/libz.so.1.2.13", "libz"},
		{"@rpath/libz.1.dylib", "libz"},
		{`C:\libs\ZLIB.DLL`, "ZLIB"},
		{"libacme-2.0.so", "libacme-2"},
		{"acme.io", "acme.io"},
		{".so", ".so"},
		{"", ""},
	}
	for _, test := range tests {
		assert.Equal(t, test.out, NormalizeName(test.in), "name: %q", test.in)
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("", nil)
	require.NoError(t, err)
	assert.Equal(t, FileName{}, s)

	s, err = ParseStrategy(" Load ", nil)
	require.NoError(t, err)
	if assert.IsType(t, &LoadBased{}, s) {
		assert.IsType(t, &ProcessProber{}, s.(*LoadBased).Prober)
	}

	_, err = ParseStrategy("inode", nil)
	assert.Error(t, err)
}

func TestReadName(t *testing.T) {
	dir := t.TempDir()
	named := elpstest.WriteELF(t, dir, "a/libacme.so", "libacme.so.1")
	anon := elpstest.WriteELF(t, dir, "b/libanon.so", "")
	text := elpstest.WriteFile(t, dir, "c/libtext.so", "not a library")

	name, err := ReadName(named)
	require.NoError(t, err)
	assert.Equal(t, "libacme.so.1", name)

	_, err = ReadName(anon)
	assert.ErrorIs(t, err, ErrNoName)

	_, err = ReadName(text)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ReadName(filepath.Join(dir, "missing.so"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type fakeProber struct {
	results []Result
	err     error
}

func (p *fakeProber) Probe(_ context.Context, paths []string) ([]Result, error) {
	return p.results, p.err
}

func TestLoadBased(t *testing.T) {
	prober := &fakeProber{results: []Result{
		{Path: "/a/libacme.so", Name: "libacme.so.1"},
		{Path: "/b/libacme2.so", Name: "libacme.so.1"},
		{Path: "/c/broken.so", Err: "bad ELF"},
		{Path: "/d/libanon.so"},
		{Path: "/e/libanon.so.2"},
	}}
	s := &LoadBased{Prober: prober, Logger: elpstest.TestLogger(t)}
	got := s.Dedupe(context.Background(), []string{"/a/libacme.so", "/b/libacme2.so", "/c/broken.so", "/d/libanon.so", "/e/libanon.so.2"})
	assert.Equal(t, []string{"/a/libacme.so", "/d/libanon.so"}, got)
}

func TestLoadBased_ProbeFailureDropsAll(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	s := &LoadBased{
		Prober: &fakeProber{err: errors.New("no worker")},
		Logger: elpstest.TestLogger(t),
		Tracer: tp.Tracer("test"),
	}
	assert.Empty(t, s.Dedupe(context.Background(), []string{"/a/libacme.so"}))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "identity.LoadBased.Dedupe", spans[0].Name)
	assert.Len(t, spans[0].Events, 1) // recorded error
}

func TestProcessProber(t *testing.T) {
	dir := t.TempDir()
	a := elpstest.WriteELF(t, dir, "a/libacme.so", "libacme.so.1")
	b := elpstest.WriteELF(t, dir, "b/libacme.so.1", "libacme.so.1")
	anon := elpstest.WriteELF(t, dir, "c/libanon.so", "")
	text := elpstest.WriteFile(t, dir, "d/libtext.so", "text")

	paths := []string{a, b, anon, text}
	results, err := testProber().Probe(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, Result{Path: a, Name: "libacme.so.1"}, results[0])
	assert.Equal(t, Result{Path: anon}, results[2])
	assert.NotEmpty(t, results[3].Err)

	s := &LoadBased{Prober: testProber(), Logger: elpstest.TestLogger(t)}
	assert.Equal(t, []string{a, anon}, s.Dedupe(context.Background(), paths))
}

func TestProcessProber_Failure(t *testing.T) {
	p := &ProcessProber{Path: filepath.Join(t.TempDir(), "no-such-worker")}
	_, err := p.Probe(context.Background(), []string{"/a/libacme.so"})
	assert.Error(t, err)

	s := &LoadBased{Prober: p, Logger: elpstest.TestLogger(t)}
	assert.Empty(t, s.Dedupe(context.Background(), []string{"/a/libacme.so"}))
}

func TestProcessProber_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testProber().Probe(ctx, []string{"/a/libacme.so"})
	assert.Error(t, err)
}
