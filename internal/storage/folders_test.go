package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-media-go/internal/model"
)

func newTestManager(t *testing.T) *FolderManager {
	t.Helper()
	m, err := NewFolderManager(t.TempDir())
	require.NoError(t, err)
	return m
}

func TestNewFolderManager_CreatesCategoryRoots(t *testing.T) {
	m := newTestManager(t)

	for _, category := range model.AllCategories {
		info, err := os.Stat(m.CategoryRoot(category))
		require.NoError(t, err, "类别 %s 的根目录应已创建", category)
		assert.True(t, info.IsDir())
	}
}

func TestEnsureOwnerFolder_Idempotent(t *testing.T) {
	m := newTestManager(t)

	name, err := m.EnsureOwnerFolder(model.CategoryPhoto, 7, "Alice Smith")
	require.NoError(t, err)
	assert.Equal(t, "7_AliceSmith", name)

	// 展示名变化也不触发隐式改名，仍定位到原目录
	again, err := m.EnsureOwnerFolder(model.CategoryPhoto, 7, "Totally Different")
	require.NoError(t, err)
	assert.Equal(t, name, again)

	entries, err := os.ReadDir(m.CategoryRoot(model.CategoryPhoto))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRenameOwnerFolder(t *testing.T) {
	m := newTestManager(t)

	_, err := m.EnsureOwnerFolder(model.CategoryPhoto, 7, "Alice")
	require.NoError(t, err)

	result := m.RenameOwnerFolder(model.CategoryPhoto, 7, "Bob")
	assert.True(t, result.Success)

	_, err = os.Stat(filepath.Join(m.CategoryRoot(model.CategoryPhoto), "7_Bob"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(m.CategoryRoot(model.CategoryPhoto), "7_Alice"))
	assert.True(t, os.IsNotExist(err), "旧目录不应保留")
}

func TestRenameOwnerFolder_MissingDoesNotCreate(t *testing.T) {
	m := newTestManager(t)

	result := m.RenameOwnerFolder(model.CategoryPhoto, 99, "Ghost")
	assert.False(t, result.Success)

	entries, err := os.ReadDir(m.CategoryRoot(model.CategoryPhoto))
	require.NoError(t, err)
	assert.Empty(t, entries, "失败的改名不应创建任何目录")
}

func TestRenameOwnerFolder_NoChange(t *testing.T) {
	m := newTestManager(t)

	_, err := m.EnsureOwnerFolder(model.CategoryPhoto, 7, "Alice")
	require.NoError(t, err)

	result := m.RenameOwnerFolder(model.CategoryPhoto, 7, "Alice")
	assert.True(t, result.Success)
}

func TestDeleteOwnerFolders(t *testing.T) {
	m := newTestManager(t)

	_, err := m.EnsureOwnerFolder(model.CategoryPhoto, 7, "Alice")
	require.NoError(t, err)
	_, err = m.EnsureOwnerFolder(model.CategoryAvatar, 7, "Alice")
	require.NoError(t, err)
	// 其他档案的目录不受影响
	_, err = m.EnsureOwnerFolder(model.CategoryPhoto, 8, "Bob")
	require.NoError(t, err)

	// 目录里有文件也要整体删除
	folder := filepath.Join(m.CategoryRoot(model.CategoryPhoto), "7_Alice")
	require.NoError(t, os.WriteFile(filepath.Join(folder, "a.jpg"), []byte("x"), 0o644))

	outcome := m.DeleteOwnerFolders(7)
	assert.Empty(t, outcome.Errors)
	assert.Len(t, outcome.DeletedFolders, 2)

	_, err = os.Stat(folder)
	assert.True(t, os.IsNotExist(err))
	_, ok, err := m.FindOwnerFolderName(model.CategoryPhoto, 8)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFolderName(t *testing.T) {
	tests := []struct {
		name        string
		ownerID     uint
		displayName string
		want        string
	}{
		{"普通名字", 7, "Alice", "7_Alice"},
		{"空格与标点被去除", 7, "Alice Smith!", "7_AliceSmith"},
		{"路径字符被去除", 7, "../etc", "7_etc"},
		{"中文整体去除后回退", 7, "张三", "7_profile"},
		{"空名回退", 7, "", "7_profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FolderName(tt.ownerID, tt.displayName))
		})
	}
}

func TestFolderName_TruncatesLabel(t *testing.T) {
	long := ""
	for i := 0; i < 80; i++ {
		long += "a"
	}
	got := FolderName(7, long)
	assert.Len(t, got, len("7_")+50)
}

func TestURLFor_MatchesURLForPath(t *testing.T) {
	m := newTestManager(t)

	name, err := m.EnsureOwnerFolder(model.CategoryPhoto, 7, "Alice")
	require.NoError(t, err)

	abs := filepath.Join(m.CategoryRoot(model.CategoryPhoto), name, "123-abc.jpg")
	fromPath, err := m.URLForPath("/uploads", abs)
	require.NoError(t, err)

	// 两条计算路径必须得到同一个 URL
	assert.Equal(t, URLFor("/uploads", model.CategoryPhoto, name, "123-abc.jpg"), fromPath)
	assert.Equal(t, "/uploads/photos/"+name+"/123-abc.jpg", fromPath)
}
