package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/archive"
	"github.com/dudu/hairline/internal/classify"
	"github.com/dudu/hairline/internal/config"
	"github.com/dudu/hairline/internal/detector"
	"github.com/dudu/hairline/internal/landmark/landmarktest"
	"github.com/dudu/hairline/internal/metrics"
	"github.com/dudu/hairline/internal/pipeline"
	"github.com/dudu/hairline/internal/progress"
	"github.com/dudu/hairline/internal/storage/jsonfile"
)

type fakeSource struct {
	present bool
}

func (f *fakeSource) Detect(gocv.Mat) (detector.Detection, error) {
	if !f.present {
		return detector.Detection{}, nil
	}
	return detector.Detection{Landmarks: landmarktest.Mesh(), Present: true, Score: 0.9}, nil
}

func (f *fakeSource) Close() error { return nil }

type testEnv struct {
	dir     string
	dataDir string
	config  string
}

func newTestEnv(t *testing.T, facePresent bool) *testEnv {
	t.Helper()
	for _, k := range []string{config.EnvStorageDriver, config.EnvStorageDSN, config.EnvLogLevel, config.EnvORTLibrary} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		dataDir: filepath.Join(dir, "data"),
		config:  filepath.Join(dir, "hairline.toml"),
	}
	t.Setenv(config.EnvDataDir, env.dataDir)

	original := newLandmarkSource
	newLandmarkSource = func(*config.Config, logrus.FieldLogger) (pipeline.LandmarkSource, error) {
		return &fakeSource{present: facePresent}, nil
	}
	t.Cleanup(func() { newLandmarkSource = original })
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	subjectFlag, verbose = "", false
	analyzeShow, analyzeEnhance = false, false
	cleanupDays, captureDevice, serveAddr = 30, -1, ""

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--config", e.config}, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func (e *testEnv) writeImage(t *testing.T, name string, size int, level uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, size, size+100))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func (e *testEnv) files(t *testing.T, kind archive.Kind) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.dataDir, string(kind)))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t, true)
	original := version
	SetVersion("1.2.3")
	defer func() { version = original }()

	out, err := env.run(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "hairline version 1.2.3")
}

func TestAnalyzeCmd(t *testing.T) {
	env := newTestEnv(t, true)
	photo := env.writeImage(t, "photo.png", 500, 120)

	out, err := env.run(t, "--subject", "alice", "analyze", photo)
	require.NoError(t, err)

	assert.Contains(t, out, "Analysis completed successfully!")
	assert.Contains(t, out, "Hairline Type:")
	assert.Len(t, env.files(t, archive.RawImages), 1)
	assert.Len(t, env.files(t, archive.Results), 1)
	assert.Len(t, env.files(t, archive.Visualizations), 1)
	assert.Empty(t, env.files(t, archive.ProcessedImages))

	out, err = env.run(t, "history", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 analyses")
}

func TestAnalyzeCmd_Enhance(t *testing.T) {
	env := newTestEnv(t, true)
	photo := env.writeImage(t, "photo.png", 500, 120)

	_, err := env.run(t, "analyze", "--enhance", photo)
	require.NoError(t, err)

	assert.Len(t, env.files(t, archive.ProcessedImages), 1)
}

func TestAnalyzeCmd_RejectsPoorImage(t *testing.T) {
	env := newTestEnv(t, true)
	small := env.writeImage(t, "small.png", 100, 120)

	_, err := env.run(t, "analyze", small)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "image validation failed")
	assert.Empty(t, env.files(t, archive.Results))
}

func TestAnalyzeCmd_NoFace(t *testing.T) {
	env := newTestEnv(t, false)
	photo := env.writeImage(t, "photo.png", 500, 120)

	_, err := env.run(t, "analyze", photo)

	require.ErrorIs(t, err, errNoFace)
	assert.Empty(t, env.files(t, archive.Results))

	out, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No analysis history found")
}

func TestProgressCmd_InsufficientData(t *testing.T) {
	env := newTestEnv(t, true)

	out, err := env.run(t, "progress", "nobody")

	require.NoError(t, err)
	assert.Contains(t, out, progress.MessageNoData)
	assert.Empty(t, env.files(t, archive.Reports))
}

func TestProgressCmd(t *testing.T) {
	env := newTestEnv(t, true)
	require.NoError(t, os.MkdirAll(env.dataDir, 0o755))

	store, err := jsonfile.NewStore(filepath.Join(env.dataDir, "hairline_data.json"), nil)
	require.NoError(t, err)
	ctx := context.Background()
	for _, s := range []progress.Snapshot{
		{SubjectID: "alice", Timestamp: "20240101_090000", Bundle: metrics.Bundle{HairlineHeight: 0.30, DensityScore: 0.40}},
		{SubjectID: "alice", Timestamp: "20240301_090000", Bundle: metrics.Bundle{HairlineHeight: 0.25, DensityScore: 0.55}},
	} {
		s.HairlineType = classify.Normal
		s.RecordedAt = time.Now()
		require.NoError(t, store.Put(ctx, s))
	}
	require.NoError(t, store.Close())

	out, err := env.run(t, "progress", "alice")
	require.NoError(t, err)

	assert.Contains(t, out, "HAIRLINE PROGRESS REPORT")
	assert.Contains(t, out, "Overall Progress: IMPROVING")
	assert.Len(t, env.files(t, archive.Reports), 1)
	assert.Len(t, env.files(t, archive.Visualizations), 1)
	assert.Len(t, env.files(t, archive.Exports), 1)
}

func TestBatchCmd(t *testing.T) {
	env := newTestEnv(t, true)
	folder := filepath.Join(env.dir, "photos")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	photo := env.writeImage(t, "photo.png", 500, 120)
	require.NoError(t, os.Rename(photo, filepath.Join(folder, "photo.png")))
	dark := env.writeImage(t, "dark.png", 500, 10)
	require.NoError(t, os.Rename(dark, filepath.Join(folder, "dark.png")))

	out, err := env.run(t, "batch", folder)
	require.NoError(t, err)

	assert.Contains(t, out, "skipped dark.png: Image too dark")
	assert.Contains(t, out, "Successful analyses: 1")
	assert.Contains(t, out, "Failed analyses: 0")
	assert.Empty(t, env.files(t, archive.RawImages))
}

func TestBatchCmd_SamplesAreRejected(t *testing.T) {
	env := newTestEnv(t, true)

	_, err := env.run(t, "samples")
	require.NoError(t, err)
	assert.Len(t, env.files(t, archive.RawImages), archive.SampleCount)

	out, err := env.run(t, "batch")
	require.NoError(t, err)
	assert.Contains(t, out, "No valid images found to process")
}

func TestSetupCmd(t *testing.T) {
	env := newTestEnv(t, true)

	out, err := env.run(t, "setup")
	require.NoError(t, err)

	assert.Contains(t, out, "Environment setup complete!")
	assert.FileExists(t, env.config)
	assert.Len(t, env.files(t, archive.RawImages), archive.SampleCount)

	cfg, err := config.Load(env.config)
	require.NoError(t, err)
	assert.Equal(t, env.dataDir, cfg.DataDir)
}

func TestExportAndCleanupCmds(t *testing.T) {
	env := newTestEnv(t, true)
	photo := env.writeImage(t, "photo.png", 500, 120)
	_, err := env.run(t, "analyze", "--subject", "bob", photo)
	require.NoError(t, err)

	out, err := env.run(t, "export", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 analyses and 0 reports for bob")

	_, err = env.run(t, "cleanup", "bob", "--days", "-1")
	assert.Error(t, err)

	out, err = env.run(t, "cleanup", "bob", "--days", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 files")
}

func TestMenuModel_Navigation(t *testing.T) {
	m := newMenuModel()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(menuModel)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.selected)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(menuModel)
	assert.Equal(t, 0, m.selected)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(menuModel)
	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"setup"}, m.choice)
	assert.Contains(t, m.View(), "HAIRLINE TRACKER")
}

func TestMenuModel_Prompt(t *testing.T) {
	m := newMenuModel()
	m.selected = 2

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(menuModel)
	require.True(t, m.prompting)
	assert.Contains(t, m.View(), "Image path: _")

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("a.jpx")},
		{Type: tea.KeyBackspace},
		{Type: tea.KeyRunes, Runes: []rune("g")},
	} {
		next, _ = m.Update(msg)
		m = next.(menuModel)
	}
	assert.Equal(t, "a.jpg", m.input)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(menuModel)
	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"analyze", "a.jpg"}, m.choice)
}

func TestMenuModel_Quit(t *testing.T) {
	next, cmd := newMenuModel().Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.NotNil(t, cmd)
	assert.Nil(t, next.(menuModel).choice)
}

func TestRunAction(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	defer rootCmd.SetOut(nil)

	require.NoError(t, runAction(menuCmd, []string{"version"}))
	assert.Contains(t, buf.String(), "hairline version")

	assert.Error(t, runAction(menuCmd, []string{"analyze"}))
}
