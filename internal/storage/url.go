package storage

import (
	"fmt"
	"path/filepath"

	"profile-media-go/internal/model"
)

// URLFor 由类别、档案目录名与文件名拼出存储相对 URL。
// 上传落盘与对账扫描都必须经由本文件计算 URL，保证两边口径一致。
func URLFor(urlPrefix string, category model.Category, folderName, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/%s", urlPrefix, category.DirName(), folderName, fileName)
}

// URLForPath 把存储根目录下的绝对路径换算成存储相对 URL。
func (m *FolderManager) URLForPath(urlPrefix, absPath string) (string, error) {
	rel, err := filepath.Rel(m.root, absPath)
	if err != nil {
		return "", fmt.Errorf("换算存储相对路径失败: %w", err)
	}
	return urlPrefix + "/" + filepath.ToSlash(rel), nil
}
