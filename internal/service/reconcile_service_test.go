package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-media-go/internal/model"
	"profile-media-go/internal/storage"
)

const testURLPrefix = "/uploads"

func newReconcileFixture(t *testing.T) (*storage.FolderManager, *fakeProfileRepo, ReconcileService) {
	t.Helper()
	folders, err := storage.NewFolderManager(t.TempDir())
	require.NoError(t, err)
	repo := newFakeProfileRepo()
	return folders, repo, NewReconcileService(folders, repo, testURLPrefix)
}

// writeOwnerFile 在档案目录下写一个文件并返回其存储相对 URL。
func writeOwnerFile(t *testing.T, folders *storage.FolderManager, category model.Category, ownerID uint, fileName, content string) string {
	t.Helper()
	folderName, err := folders.EnsureOwnerFolder(category, ownerID, "Alice")
	require.NoError(t, err)
	path := filepath.Join(folders.CategoryRoot(category), folderName, fileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return storage.URLFor(testURLPrefix, category, folderName, fileName)
}

func TestScan_FindsOrphans(t *testing.T) {
	folders, repo, svc := newReconcileFixture(t)

	knownURL := writeOwnerFile(t, folders, model.CategoryPhoto, 1, "a.jpg", "aaaa")
	orphanURL := writeOwnerFile(t, folders, model.CategoryPhoto, 1, "b.jpg", "bbbbbbbb")
	repo.addKnown(model.CategoryPhoto, knownURL)

	report, err := svc.Scan(model.CategoryPhoto)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ScannedFiles)
	require.Len(t, report.Orphans, 1)
	assert.Equal(t, orphanURL, report.Orphans[0].URL)
	assert.Equal(t, int64(8), report.Orphans[0].ByteSize)
	assert.Equal(t, int64(8), report.TotalOrphanBytes)
	// 报告里只出现存储相对路径
	assert.False(t, filepath.IsAbs(report.Orphans[0].Path))
}

func TestScan_SkipsTempFiles(t *testing.T) {
	folders, _, svc := newReconcileFixture(t)

	folderName, err := folders.EnsureOwnerFolder(model.CategoryPhoto, 1, "Alice")
	require.NoError(t, err)
	dir := filepath.Join(folders.CategoryRoot(model.CategoryPhoto), folderName)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-12345"), []byte("half written"), 0o644))

	report, err := svc.Scan(model.CategoryPhoto)
	require.NoError(t, err)
	assert.Zero(t, report.ScannedFiles)
	assert.Empty(t, report.Orphans)
}

func TestScan_EmptyCategory(t *testing.T) {
	_, _, svc := newReconcileFixture(t)

	report, err := svc.Scan(model.CategoryVideo)
	require.NoError(t, err)
	assert.Zero(t, report.ScannedFiles)
	assert.Empty(t, report.Orphans)
	assert.Zero(t, report.TotalOrphanBytes)
}

func TestCleanup_DryRunThenDelete(t *testing.T) {
	folders, repo, svc := newReconcileFixture(t)

	knownURL := writeOwnerFile(t, folders, model.CategoryPhoto, 1, "a.jpg", "aaaa")
	writeOwnerFile(t, folders, model.CategoryPhoto, 1, "b.jpg", "bbbbbbbb")
	writeOwnerFile(t, folders, model.CategoryPhoto, 1, "c.jpg", "cc")
	repo.addKnown(model.CategoryPhoto, knownURL)

	report, err := svc.Scan(model.CategoryPhoto)
	require.NoError(t, err)
	require.Len(t, report.Orphans, 2)

	paths := make([]string, 0, len(report.Orphans))
	for _, orphan := range report.Orphans {
		paths = append(paths, orphan.Path)
	}

	// dry-run 只核算，不删除；结果回显模式，避免预览被误读为已执行
	result := svc.Cleanup(paths, true)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Equal(t, int64(10), result.FreedBytes)
	assert.Empty(t, result.Errors)

	after, err := svc.Scan(model.CategoryPhoto)
	require.NoError(t, err)
	assert.Len(t, after.Orphans, 2, "dry-run 之后孤儿仍在")

	// 真删之后再扫描应为零孤儿
	result = svc.Cleanup(paths, false)
	assert.False(t, result.DryRun)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Equal(t, int64(10), result.FreedBytes)
	assert.Empty(t, result.Errors)

	after, err = svc.Scan(model.CategoryPhoto)
	require.NoError(t, err)
	assert.Empty(t, after.Orphans)
	assert.Equal(t, 1, after.ScannedFiles, "被引用的文件不可触碰")
}

func TestCleanup_RefusesPathsOutsideRoot(t *testing.T) {
	folders, _, svc := newReconcileFixture(t)

	outside := filepath.Join(filepath.Dir(folders.Root()), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o644))

	result := svc.Cleanup([]string{
		"../victim.txt",
		outside,
		"photos/../../victim.txt",
	}, false)
	assert.Zero(t, result.DeletedCount)
	assert.Len(t, result.Errors, 3)

	_, err := os.Stat(outside)
	assert.NoError(t, err, "根目录之外的文件必须原样保留")
}

func TestCleanup_RefusesDirectories(t *testing.T) {
	folders, _, svc := newReconcileFixture(t)

	folderName, err := folders.EnsureOwnerFolder(model.CategoryPhoto, 1, "Alice")
	require.NoError(t, err)

	result := svc.Cleanup([]string{filepath.Join("photos", folderName)}, false)
	assert.Zero(t, result.DeletedCount)
	require.Len(t, result.Errors, 1)

	_, statErr := os.Stat(filepath.Join(folders.CategoryRoot(model.CategoryPhoto), folderName))
	assert.NoError(t, statErr)
}

func TestCleanup_MissingFileIsError(t *testing.T) {
	_, _, svc := newReconcileFixture(t)

	result := svc.Cleanup([]string{"photos/1_Alice/gone.jpg"}, false)
	assert.Zero(t, result.DeletedCount)
	assert.Len(t, result.Errors, 1)
}
