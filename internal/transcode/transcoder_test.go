package transcode

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func decodeStored(t *testing.T, path string) image.Config {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	return cfg
}

// assertNoTempLeftovers 检查目录里没有残留的临时文件。
func assertNoTempLeftovers(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"), "残留临时文件 %s", entry.Name())
	}
}

func TestProcessImage_SmallImageKeepsSize(t *testing.T) {
	dir := t.TempDir()
	tr := NewTranscoder(1200, 85)

	fileName, err := tr.ProcessImage(encodePNG(t, 50, 40), dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(fileName, ".jpg"))

	cfg := decodeStored(t, filepath.Join(dir, fileName))
	// 只缩不放：小图保持原尺寸
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 40, cfg.Height)
	assertNoTempLeftovers(t, dir)
}

func TestProcessImage_LargeImageFitsBoundingBox(t *testing.T) {
	dir := t.TempDir()
	tr := NewTranscoder(100, 85)

	fileName, err := tr.ProcessImage(encodePNG(t, 400, 200), dir)
	require.NoError(t, err)

	cfg := decodeStored(t, filepath.Join(dir, fileName))
	// 长边对齐外接框，比例保持 2:1
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestProcessImageAs_UsesGivenBaseName(t *testing.T) {
	dir := t.TempDir()
	tr := NewTranscoder(1200, 85)

	fileName, err := tr.ProcessImageAs(encodePNG(t, 10, 10), dir, "123-abcd.cover")
	require.NoError(t, err)
	assert.Equal(t, "123-abcd.cover.jpg", fileName)
}

func TestProcessImage_CorruptDataLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	tr := NewTranscoder(1200, 85)

	_, err := tr.ProcessImage([]byte("not an image at all"), dir)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "失败的转码不应留下任何文件")
}

func TestStoreRaw(t *testing.T) {
	dir := t.TempDir()
	tr := NewTranscoder(1200, 85)

	data := []byte("ftyp video payload")
	fileName, err := tr.StoreRaw(data, dir, "456-efgh", ".mp4")
	require.NoError(t, err)
	assert.Equal(t, "456-efgh.mp4", fileName)

	stored, err := os.ReadFile(filepath.Join(dir, fileName))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assertNoTempLeftovers(t, dir)
}

func TestBaseName_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := BaseName()
		assert.False(t, seen[name], "基础名出现重复: %s", name)
		seen[name] = true
	}
}
