// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	xwebp "golang.org/x/image/webp"

	"github.com/pdiddy/webpress/internal/codec"
	"github.com/pdiddy/webpress/internal/display"
	"github.com/pdiddy/webpress/internal/report"
	"github.com/pdiddy/webpress/internal/scan"
	"github.com/pdiddy/webpress/pkg/types"
)

// fakeConverter implements Converter for testing. It writes canned output
// bytes, or fails for configured input base names.
type fakeConverter struct {
	fsys   afero.Fs
	output []byte
	failOn map[string]error
	calls  []types.Job
}

func (f *fakeConverter) Convert(job types.Job) error {
	f.calls = append(f.calls, job)
	if err, ok := f.failOn[filepath.Base(job.InputPath)]; ok {
		return err
	}
	return afero.WriteFile(f.fsys, job.OutputPath, f.output, 0o644)
}

// fakeHistory records run records instead of writing SQLite.
type fakeHistory struct {
	recs []types.RunRecord
	err  error
}

func (f *fakeHistory) RecordRun(_ context.Context, rec types.RunRecord) error {
	f.recs = append(f.recs, rec)
	return f.err
}

// seedInputs writes fixture files with distinct sizes (100, 200, 300, ...).
func seedInputs(t *testing.T, fsys afero.Fs, dir string, names ...string) {
	t.Helper()
	for i, name := range names {
		data := bytes.Repeat([]byte{byte(i + 1)}, (i+1)*100)
		if err := afero.WriteFile(fsys, filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func testConfig() types.ConvertConfig {
	return types.ConvertConfig{
		InputDir:  "in",
		OutputDir: "out",
		Quality:   85,
	}
}

func testRunner(fsys afero.Fs, conv Converter, out *bytes.Buffer) *Runner {
	return &Runner{
		Fsys:    fsys,
		Conv:    conv,
		Console: display.NewConsole(out),
		Log:     zerolog.Nop(),
	}
}

func TestRunConvertsAll(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg", "b.png", "c.gif")
	conv := &fakeConverter{fsys: fsys, output: bytes.Repeat([]byte{0xAB}, 50)}
	var out bytes.Buffer

	stats, err := testRunner(fsys, conv, &out).Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Found != 3 || stats.Converted != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalInputBytes != 600 || stats.TotalOutputBytes != 150 {
		t.Errorf("byte totals = %d in, %d out", stats.TotalInputBytes, stats.TotalOutputBytes)
	}

	for _, name := range []string{"a.webp", "b.webp", "c.webp"} {
		if ok, _ := afero.Exists(fsys, filepath.Join("out", name)); !ok {
			t.Errorf("missing output %s", name)
		}
	}

	if len(conv.calls) != 3 || conv.calls[0].InputPath != "in/a.jpg" {
		t.Errorf("calls = %+v", conv.calls)
	}

	text := out.String()
	for _, want := range []string{"[1/3]", "[3/3]", "Converted: 3/3 files"} {
		if !strings.Contains(text, want) {
			t.Errorf("console missing %q:\n%s", want, text)
		}
	}
}

func TestRunFailureIsolation(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg", "b.png", "c.gif")
	conv := &fakeConverter{
		fsys:   fsys,
		output: []byte("webp"),
		failOn: map[string]error{
			"b.png": &codec.Error{Stage: types.StageDecode, Path: "in/b.png", Err: errors.New("unexpected EOF")},
		},
	}
	var out bytes.Buffer

	stats, err := testRunner(fsys, conv, &out).Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("per-file failures must not fail the run: %v", err)
	}

	if stats.Converted != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if !stats.HasFailures() {
		t.Error("HasFailures should be true")
	}
	// Only successful conversions count toward the size totals.
	if stats.TotalInputBytes != 400 {
		t.Errorf("input bytes = %d, want 400", stats.TotalInputBytes)
	}

	if len(conv.calls) != 3 {
		t.Errorf("files after the failure were not attempted: %d calls", len(conv.calls))
	}
	if ok, _ := afero.Exists(fsys, "out/b.webp"); ok {
		t.Error("failed file should not leave an output")
	}

	text := out.String()
	if !strings.Contains(text, "failed") || !strings.Contains(text, "unexpected EOF") {
		t.Errorf("console missing failure line:\n%s", text)
	}
	if !strings.Contains(text, "Converted: 2/3 files") {
		t.Errorf("console missing summary:\n%s", text)
	}
}

func TestRunMissingInputDir(t *testing.T) {
	fsys := afero.NewMemMapFs()
	var out bytes.Buffer

	stats, err := testRunner(fsys, &fakeConverter{fsys: fsys}, &out).Run(context.Background(), testConfig())
	if !errors.Is(err, scan.ErrMissingInputDir) {
		t.Fatalf("error = %v, want ErrMissingInputDir", err)
	}
	if stats.Total() != 0 {
		t.Errorf("stats = %+v, want zero", stats)
	}
	if ok, _ := afero.DirExists(fsys, "out"); ok {
		t.Error("output directory must not be created when input is missing")
	}
	if strings.Contains(out.String(), "Summary") {
		t.Errorf("no summary expected:\n%s", out.String())
	}
}

func TestRunEmptyInputDir(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("in", 0o755); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer

	stats, err := testRunner(fsys, &fakeConverter{fsys: fsys}, &out).Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Found != 0 {
		t.Errorf("stats = %+v", stats)
	}

	text := out.String()
	if !strings.Contains(text, "No images to convert in 'in'") {
		t.Errorf("missing notice:\n%s", text)
	}
	if !strings.Contains(text, ".jpg") {
		t.Errorf("notice should list supported formats:\n%s", text)
	}
	if ok, _ := afero.DirExists(fsys, "out"); ok {
		t.Error("output directory must not be created for an empty run")
	}
}

func TestRunSkipsNonImages(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg", "notes.txt", "archive.zip")
	conv := &fakeConverter{fsys: fsys, output: []byte("webp")}
	var out bytes.Buffer

	stats, err := testRunner(fsys, conv, &out).Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Found != 1 || stats.Converted != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(conv.calls) != 1 || filepath.Base(conv.calls[0].InputPath) != "a.jpg" {
		t.Errorf("calls = %+v", conv.calls)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg", "b.png")
	conv := &fakeConverter{fsys: fsys, output: []byte("webp-bytes")}
	hist := &fakeHistory{}
	var out bytes.Buffer

	r := testRunner(fsys, conv, &out)
	r.History = hist

	stats, err := r.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hist.recs) != 1 {
		t.Fatalf("got %d run records, want 1", len(hist.recs))
	}
	rec := hist.recs[0]
	if len(rec.ID) != 36 {
		t.Errorf("run id %q is not a UUID", rec.ID)
	}
	if rec.InputDir != "in" || rec.OutputDir != "out" || rec.Quality != 85 {
		t.Errorf("run config not captured: %+v", rec)
	}
	if rec.Stats != stats {
		t.Errorf("recorded stats %+v != returned stats %+v", rec.Stats, stats)
	}
	if len(rec.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(rec.Results))
	}
	if rec.FinishedAt.Before(rec.StartedAt) {
		t.Errorf("finished %v before started %v", rec.FinishedAt, rec.StartedAt)
	}

	want := xxhash.Sum64([]byte("webp-bytes"))
	if rec.Results[0].Checksum != want {
		t.Errorf("checksum = %x, want %x", rec.Results[0].Checksum, want)
	}
}

func TestRunHistoryFailureIsNotFatal(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg")
	conv := &fakeConverter{fsys: fsys, output: []byte("webp")}
	hist := &fakeHistory{err: errors.New("database is locked")}
	var out bytes.Buffer

	r := testRunner(fsys, conv, &out)
	r.History = hist

	stats, err := r.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("ledger failure must not fail the run: %v", err)
	}
	if stats.Converted != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunWritesReport(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg")
	conv := &fakeConverter{fsys: fsys, output: []byte("webp")}
	var out bytes.Buffer

	r := testRunner(fsys, conv, &out)
	r.Version = "0.0.0-test"
	cfg := testConfig()
	cfg.ReportPath = "out/report.yaml"

	if _, err := r.Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rep, err := report.Read(fsys, "out/report.yaml")
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if rep.Tool != "webpress" || rep.Version != "0.0.0-test" {
		t.Errorf("producer = %s %s", rep.Tool, rep.Version)
	}
	if rep.Run.Stats.Converted != 1 || len(rep.Run.Results) != 1 {
		t.Errorf("report run = %+v", rep.Run)
	}
}

func TestRunHEICWithoutDecoder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg", "x.heic", "y.HEIF")
	conv := &fakeConverter{fsys: fsys, output: []byte("webp")}
	var out bytes.Buffer

	stats, err := testRunner(fsys, conv, &out).Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Found != 1 || stats.UnsupportedHEIC != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if !strings.Contains(out.String(), "2 HEIC files") {
		t.Errorf("console missing HEIC warning:\n%s", out.String())
	}
	for _, job := range conv.calls {
		if strings.Contains(strings.ToLower(job.InputPath), "hei") {
			t.Errorf("HEIC file should not be attempted: %s", job.InputPath)
		}
	}
}

func TestRunHEICWithDecoder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg", "x.heic")
	conv := &fakeConverter{fsys: fsys, output: []byte("webp")}
	var out bytes.Buffer

	r := testRunner(fsys, conv, &out)
	r.HEIFTool = "heif-convert"

	stats, err := r.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Found != 2 || stats.Converted != 2 || stats.UnsupportedHEIC != 0 {
		t.Errorf("stats = %+v", stats)
	}
	text := out.String()
	if !strings.Contains(text, "HEIF support: heif-convert") {
		t.Errorf("header missing HEIF tool:\n%s", text)
	}
	if strings.Contains(text, "no decoder is available") {
		t.Errorf("unexpected HEIC warning:\n%s", text)
	}
	if ok, _ := afero.Exists(fsys, "out/x.webp"); !ok {
		t.Error("heic file not converted")
	}
}

func TestRunCancelledContext(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedInputs(t, fsys, "in", "a.jpg", "b.png")
	conv := &fakeConverter{fsys: fsys, output: []byte("webp")}
	hist := &fakeHistory{}
	var out bytes.Buffer

	r := testRunner(fsys, conv, &out)
	r.History = hist

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := r.Run(ctx, testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if stats.Total() != 0 {
		t.Errorf("stats = %+v, want nothing processed", stats)
	}
	// The partial run still gets a summary and a ledger entry.
	if !strings.Contains(out.String(), "Summary") {
		t.Errorf("summary not printed:\n%s", out.String())
	}
	if len(hist.recs) != 1 || len(hist.recs[0].Results) != 0 {
		t.Errorf("history recs = %+v", hist.recs)
	}
}

// pngFixture returns an encoded PNG with a transparent region.
func pngFixture(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			a := uint8(255)
			if x >= 4 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 30), B: 90, A: a})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRunEndToEndWithCodec(t *testing.T) {
	fsys := afero.NewMemMapFs()
	pngData := pngFixture(t)
	if err := afero.WriteFile(fsys, "in/photo.png", pngData, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "in/broken.jpg", []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	hist := &fakeHistory{}
	var out bytes.Buffer
	r := testRunner(fsys, codec.NewWebPConverter(fsys, 85, nil), &out)
	r.History = hist

	stats, err := r.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Found != 2 || stats.Converted != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalInputBytes != int64(len(pngData)) {
		t.Errorf("input bytes = %d, want %d", stats.TotalInputBytes, len(pngData))
	}

	data, err := afero.ReadFile(fsys, "out/photo.webp")
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	img, err := xwebp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable WebP: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("bounds = %v, want 8x8", img.Bounds())
	}
	// The transparent half must stay transparent through the pipeline.
	if _, _, _, a := img.At(6, 3).RGBA(); a != 0 {
		t.Errorf("alpha lost in conversion: %d", a)
	}

	rec := hist.recs[0]
	failed := rec.Results[0]
	if filepath.Base(failed.Job.InputPath) != "broken.jpg" {
		// Discover sorts, so broken.jpg comes first.
		t.Fatalf("unexpected result order: %+v", rec.Results)
	}
	if failed.Status != types.StatusFailed || failed.Stage != types.StageDecode {
		t.Errorf("failure not classified: %+v", failed)
	}
}
