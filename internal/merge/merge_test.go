package merge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmatch/internal/attributes"
	"docmatch/internal/testsupport"
)

func record(identifier, source string) attributes.Record {
	return attributes.NewExtractor(attributes.DefaultOptions()).Extract(attributes.Input{Identifier: identifier, Source: source})
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		support string
		want    string
	}{
		{"support date wins", "FC 10-01-2024 JUAN.pdf", "2024-01-11 recibo.pdf", "FC 10-01-2024 JUAN-2024-01-11.pdf"},
		{"primary date fallback", "FC-2024-01-10-JUAN PEREZ-150000.pdf", "recibo JUAN PEREZ.pdf", "FC-2024-01-10-JUAN PEREZ-150000-2024-01-10.pdf"},
		{"marker when undated", "FC JUAN PEREZ 150000.pdf", "JUAN PEREZ.pdf", "FC JUAN PEREZ 150000-COMBINADO.pdf"},
		{"extension case kept", "ACME.PDF", "x.pdf", "ACME-COMBINADO.PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputName(record(tt.primary, ""), record(tt.support, ""), "COMBINADO"))
		})
	}
}

func TestOutputNameDefaultMarker(t *testing.T) {
	assert.Equal(t, "a-COMBINADO.pdf", OutputName(record("a.pdf", ""), record("b.pdf", ""), ""))
}

type fakeConcat struct {
	calls [][]string
	fail  map[string]error
}

func (f *fakeConcat) Concatenate(_ context.Context, dst string, sources ...string) error {
	f.calls = append(f.calls, append([]string{dst}, sources...))
	if err := f.fail[sources[0]]; err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("merged"), 0o644)
}

func TestStageIsolatesFailures(t *testing.T) {
	out := t.TempDir()
	concat := &fakeConcat{fail: map[string]error{"/in/p2.pdf": errors.New("corrupt")}}
	stage := &Stage{Concat: concat, OutputDir: out, Marker: "COMBINADO"}

	jobs := []Job{
		{Primary: record("p1.pdf", "/in/p1.pdf"), Support: record("s1.pdf", "/in/s1.pdf")},
		{Primary: record("p2.pdf", "/in/p2.pdf"), Support: record("s2.pdf", "/in/s2.pdf")},
		{Primary: record("p3.pdf", "/in/p3.pdf"), Support: record("s3.pdf", "/in/s3.pdf")},
	}
	report, err := stage.Run(context.Background(), jobs)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Merged)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Outcomes, 3)
	assert.EqualError(t, report.Outcomes[1].Err, "corrupt")
	assert.Equal(t, "p2.pdf", report.Outcomes[1].Primary)
	assert.Equal(t, []string{filepath.Join(out, "p1-COMBINADO.pdf"), "/in/p1.pdf", "/in/s1.pdf"}, concat.calls[0])
	assert.Equal(t, []string{"p1-COMBINADO.pdf", "p3-COMBINADO.pdf"}, testsupport.ListNames(t, out))
}

func TestStageStopsWhenContextDone(t *testing.T) {
	concat := &fakeConcat{}
	stage := &Stage{Concat: concat, OutputDir: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := stage.Run(ctx, []Job{{Primary: record("p.pdf", "/p"), Support: record("s.pdf", "/s")}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Merged)
	assert.Empty(t, concat.calls)
}

func TestPDFConcatenatorPrimaryPagesFirst(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "primary.pdf")
	support := filepath.Join(dir, "support.pdf")
	testsupport.WritePDF(t, primary, 2)
	testsupport.WritePDF(t, support, 1)

	dst := filepath.Join(dir, "out", "merged.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, NewPDFConcatenator().Concatenate(context.Background(), dst, primary, support))

	pages, err := PageCount(dst)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"merged.pdf"}, testsupport.ListNames(t, filepath.Dir(dst)))
}

func TestPDFConcatenatorLeavesNoOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	bad := filepath.Join(dir, "bad.pdf")
	testsupport.WritePDF(t, good, 1)
	testsupport.WriteFile(t, bad, "not a pdf")

	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))
	err := NewPDFConcatenator().Concatenate(context.Background(), filepath.Join(out, "merged.pdf"), good, bad)
	require.Error(t, err)
	assert.Empty(t, testsupport.ListNames(t, out))

	err = NewPDFConcatenator().Concatenate(context.Background(), filepath.Join(out, "merged.pdf"), good, filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestPDFConcatenatorRejectsUnreadableSourceBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	bad := filepath.Join(dir, "bad.pdf")
	testsupport.WritePDF(t, good, 2)
	testsupport.WriteFile(t, bad, "%PDF-1.4\ntruncated")

	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))
	err := NewPDFConcatenator().Concatenate(context.Background(), filepath.Join(out, "merged.pdf"), good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge source")
	assert.Contains(t, err.Error(), "bad.pdf")
	assert.Empty(t, testsupport.ListNames(t, out))

	pages, err := PageCount(good)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}
