package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/enhancer"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestNew_CreatesLayout(t *testing.T) {
	a := newTestArchive(t)

	for _, k := range Kinds {
		info, err := os.Stat(a.Dir(k))
		require.NoError(t, err, k)
		assert.True(t, info.IsDir())
	}
}

func TestValidateSubject(t *testing.T) {
	assert.NoError(t, ValidateSubject("alice"))
	assert.ErrorIs(t, ValidateSubject(""), ErrInvalidSubject)
	assert.ErrorIs(t, ValidateSubject("  "), ErrInvalidSubject)
	assert.ErrorIs(t, ValidateSubject("../etc"), ErrInvalidSubject)
	assert.ErrorIs(t, ValidateSubject(".."), ErrInvalidSubject)
}

func TestSaveImages(t *testing.T) {
	a := newTestArchive(t)
	img := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV8UC3)
	defer img.Close()

	path, err := a.SaveInput(img, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Dir(RawImages), "alice_20240506_070809.jpg"), path)
	assert.FileExists(t, path)

	path, err = a.SaveInput(img, "alice", "custom.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Dir(RawImages), "custom.png"), path)

	path, err = a.SaveProcessed(img, "alice", "enhanced")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Dir(ProcessedImages), "alice_20240506_070809_enhanced.jpg"), path)

	path, err = a.SaveVisualization(img, "alice", "analysis")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Dir(Visualizations), "alice_20240506_070809_analysis.jpg"), path)
	assert.FileExists(t, path)
}

func TestSaveResult(t *testing.T) {
	a := newTestArchive(t)

	path, err := a.SaveResult(map[string]float64{"density_score": 0.4}, "alice", "20240101_000000")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Dir(Results), "alice_20240101_000000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"density_score": 0.4}`, string(data))

	path, err = a.SaveResult(map[string]int{}, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice_20240506_070809.json", filepath.Base(path))
}

func TestSaveReport(t *testing.T) {
	a := newTestArchive(t)

	path, err := a.SaveReport("HAIRLINE PROGRESS REPORT\n", "alice", "progress")
	require.NoError(t, err)
	assert.Equal(t, "alice_20240506_070809_progress.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "HAIRLINE PROGRESS REPORT\n", string(data))
}

func TestSave_RejectsBadSubject(t *testing.T) {
	a := newTestArchive(t)

	_, err := a.SaveResult(1, "a/b", "")
	assert.ErrorIs(t, err, ErrInvalidSubject)

	_, err = a.SaveReport("x", "", "progress")
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestHistory_SortedAndExactPrefix(t *testing.T) {
	a := newTestArchive(t)

	for _, ts := range []string{"20240301_000000", "20240101_000000", "20240201_000000"} {
		_, err := a.SaveResult(map[string]string{"ts": ts}, "al", ts)
		require.NoError(t, err)
	}
	_, err := a.SaveResult(1, "alice", "20240101_000000")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(a.Dir(Results), "al_notes.txt"), []byte("x"), 0o644))

	history, err := a.History("al")
	require.NoError(t, err)

	require.Len(t, history, 3)
	assert.Equal(t, "20240101_000000", history[0].Timestamp)
	assert.Equal(t, "20240201_000000", history[1].Timestamp)
	assert.Equal(t, "20240301_000000", history[2].Timestamp)
	assert.Equal(t, "al_20240101_000000.json", history[0].Filename)
}

func TestHistory_Unknown(t *testing.T) {
	a := newTestArchive(t)

	history, err := a.History("nobody")

	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExport(t *testing.T) {
	a := newTestArchive(t)

	_, err := a.SaveResult(map[string]float64{"density_score": 0.4}, "alice", "20240101_000000")
	require.NoError(t, err)
	_, err = a.SaveResult(map[string]float64{"density_score": 0.6}, "alice", "20240201_000000")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(a.Dir(Results), "alice_20240301_000000.json"), []byte("{broken"), 0o644))
	_, err = a.SaveReport("report text", "alice", "progress")
	require.NoError(t, err)

	path, doc, err := a.Export("alice")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(a.Dir(Exports), "alice_20240506_070809.json"), path)
	_, err = uuid.Parse(doc.ExportID)
	assert.NoError(t, err)
	assert.Equal(t, "alice", doc.SubjectID)
	require.Len(t, doc.Analyses, 2, "corrupt file skipped")
	assert.JSONEq(t, `{"density_score": 0.4}`, string(doc.Analyses[0]))
	require.Len(t, doc.Reports, 1)
	assert.Equal(t, "report text", doc.Reports[0].Text)

	var decoded Export
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, doc.ExportID, decoded.ExportID)
	assert.Len(t, decoded.Analyses, 2)
}

func TestExport_NoData(t *testing.T) {
	a := newTestArchive(t)

	_, doc, err := a.Export("alice")

	require.NoError(t, err)
	assert.Empty(t, doc.Analyses)
	assert.Empty(t, doc.Reports)
}

func TestCleanup(t *testing.T) {
	a := newTestArchive(t)

	oldResult, err := a.SaveResult(1, "alice", "20230101_000000")
	require.NoError(t, err)
	newResult, err := a.SaveResult(1, "alice", "20240501_000000")
	require.NoError(t, err)
	otherOld, err := a.SaveResult(1, "bob", "20230101_000000")
	require.NoError(t, err)
	oldReport, err := a.SaveReport("r", "alice", "progress")
	require.NoError(t, err)

	old := fixedNow.Add(-40 * 24 * time.Hour)
	for _, p := range []string{oldResult, otherOld, oldReport} {
		require.NoError(t, os.Chtimes(p, old, old))
	}
	require.NoError(t, os.Chtimes(newResult, fixedNow, fixedNow))

	removed, err := a.Cleanup("alice", 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, oldResult)
	assert.NoFileExists(t, oldReport)
	assert.FileExists(t, newResult)
	assert.FileExists(t, otherOld)
}

func TestSampleFace(t *testing.T) {
	img := SampleFace(100)
	defer img.Close()

	assert.Equal(t, 500, img.Rows())
	hair := img.GetVecbAt(150, 250)
	assert.Equal(t, []uint8{101, 67, 33}, []uint8{hair[0], hair[1], hair[2]})
	skin := img.GetVecbAt(280, 250)
	assert.Equal(t, []uint8{255, 229, 204}, []uint8{skin[0], skin[1], skin[2]})
	bg := img.GetVecbAt(50, 50)
	assert.Equal(t, []uint8{255, 255, 255}, []uint8{bg[0], bg[1], bg[2]})
}

func TestCreateSamplesAndScan(t *testing.T) {
	a := newTestArchive(t)

	paths, err := a.CreateSamples()
	require.NoError(t, err)
	require.Len(t, paths, SampleCount)
	assert.Equal(t, "sample_01.jpg", filepath.Base(paths[0]))

	small := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer small.Close()
	_, err = a.SaveInput(small, "tiny", "tiny.png")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(a.Dir(RawImages), "broken.jpg"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a.Dir(RawImages), "readme.txt"), []byte("skip"), 0o644))

	valid, invalid, err := a.Scan(a.Dir(RawImages), enhancer.New(enhancer.DefaultOptions()))
	require.NoError(t, err)

	// the cartoon faces sit on a white canvas and fail the brightness check
	assert.Empty(t, valid)
	require.Len(t, invalid, SampleCount+2)
	assert.Equal(t, "broken.jpg", filepath.Base(invalid[0].Path))
	assert.Equal(t, "Cannot read image file", invalid[0].Reason)
	assert.Equal(t, "sample_01.jpg", filepath.Base(invalid[1].Path))
	assert.Equal(t, enhancer.ReasonTooLight, invalid[1].Reason)
	assert.Equal(t, "tiny.png", filepath.Base(invalid[SampleCount+1].Path))
	assert.Equal(t, "Image too small (min 300x300 required)", invalid[SampleCount+1].Reason)
}

func TestScan_AcceptsValidImage(t *testing.T) {
	a := newTestArchive(t)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(120, 120, 120, 0), 400, 400, gocv.MatTypeCV8UC3)
	defer img.Close()
	path, err := a.SaveInput(img, "alice", "")
	require.NoError(t, err)

	valid, invalid, err := a.Scan(a.Dir(RawImages), enhancer.New(enhancer.DefaultOptions()))
	require.NoError(t, err)

	assert.Equal(t, []string{path}, valid)
	assert.Empty(t, invalid)
}

func TestScan_MissingDir(t *testing.T) {
	a := newTestArchive(t)

	_, _, err := a.Scan(filepath.Join(a.Root(), "missing"), enhancer.New(enhancer.DefaultOptions()))

	assert.Error(t, err)
}
