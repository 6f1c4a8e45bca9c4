// Package storage 管理按档案划分的本地存储目录树。
// 目录名形如 {档案ID}_{清洗后的展示名}：ID 前缀是持久身份，
// 名称后缀只是可改的装饰标签，所有定位都以 ID 前缀为准。
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"profile-media-go/internal/model"
	"profile-media-go/pkg/log"
)

// Result 是尽力而为操作的结构化结果。
// 改名、删目录这类操作发生在权威的数据库变更提交之后，
// 失败只记录、不回传异常，由调用方自行决定是否上报。
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeleteOutcome 汇总一次档案目录删除的结果。
type DeleteOutcome struct {
	DeletedFolders []string `json:"deletedFolders"`
	Errors         []string `json:"errors"`
}

// FolderManager 负责档案目录的创建、改名与删除。
type FolderManager struct {
	root string
}

// NewFolderManager 创建目录管理器并确保各类别根目录存在。
func NewFolderManager(root string) (*FolderManager, error) {
	root = filepath.Clean(root)
	for _, category := range model.AllCategories {
		if err := os.MkdirAll(filepath.Join(root, category.DirName()), 0o755); err != nil {
			return nil, fmt.Errorf("创建类别根目录失败: %w", err)
		}
	}
	return &FolderManager{root: root}, nil
}

// Root 返回存储根目录。
func (m *FolderManager) Root() string {
	return m.root
}

// CategoryRoot 返回某类别的根目录。
func (m *FolderManager) CategoryRoot(category model.Category) string {
	return filepath.Join(m.root, category.DirName())
}

// EnsureOwnerFolder 幂等地保证档案目录存在并返回目录名。
// 若已存在以 {档案ID}_ 开头的目录则原样返回，即使展示名已经变化——
// 改名是独立的显式操作，不在这里顺带发生。
func (m *FolderManager) EnsureOwnerFolder(category model.Category, ownerID uint, displayName string) (string, error) {
	categoryRoot := m.CategoryRoot(category)

	if existing, ok, err := m.findOwnerFolder(categoryRoot, ownerID); err != nil {
		return "", err
	} else if ok {
		return existing, nil
	}

	name := FolderName(ownerID, displayName)
	if err := os.MkdirAll(filepath.Join(categoryRoot, name), 0o755); err != nil {
		return "", fmt.Errorf("创建档案目录失败: %w", err)
	}
	return name, nil
}

// RenameOwnerFolder 将档案目录改名为新的展示名。
// 这是数据库展示名更新之后的异步跟进动作：找不到目录或改名失败
// 都只体现在返回的 Result 里，旧目录名保留，已存 URL 不受影响。
func (m *FolderManager) RenameOwnerFolder(category model.Category, ownerID uint, newDisplayName string) Result {
	categoryRoot := m.CategoryRoot(category)

	existing, ok, err := m.findOwnerFolder(categoryRoot, ownerID)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("查找档案目录失败: %v", err)}
	}
	if !ok {
		return Result{Success: false, Message: fmt.Sprintf("档案 %d 在类别 %s 下没有目录", ownerID, category)}
	}

	newName := FolderName(ownerID, newDisplayName)
	if existing == newName {
		return Result{Success: true, Message: "目录名未变化"}
	}

	if err := os.Rename(filepath.Join(categoryRoot, existing), filepath.Join(categoryRoot, newName)); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("目录改名失败: %v", err)}
	}
	return Result{Success: true, Message: fmt.Sprintf("目录已改名为 %s", newName)}
}

// DeleteOwnerFolders 递归删除档案在所有类别下的目录。
// 在档案及其数据库记录删除之后调用；删除失败逐条收集，不向调用方抛出，
// 数据库删除是已提交的权威动作，这里只是尽力而为的存储清理。
func (m *FolderManager) DeleteOwnerFolders(ownerID uint) DeleteOutcome {
	var outcome DeleteOutcome

	for _, category := range model.AllCategories {
		categoryRoot := m.CategoryRoot(category)
		existing, ok, err := m.findOwnerFolder(categoryRoot, ownerID)
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", category, err))
			continue
		}
		if !ok {
			continue
		}
		if err := os.RemoveAll(filepath.Join(categoryRoot, existing)); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s/%s: %v", category.DirName(), existing, err))
			continue
		}
		outcome.DeletedFolders = append(outcome.DeletedFolders, filepath.Join(category.DirName(), existing))
	}

	if len(outcome.Errors) > 0 {
		log.Warnw("档案目录清理部分失败", "ownerID", ownerID, "errors", outcome.Errors)
	}
	return outcome
}

// FindOwnerFolderName 返回档案在某类别下的现有目录名。
func (m *FolderManager) FindOwnerFolderName(category model.Category, ownerID uint) (string, bool, error) {
	return m.findOwnerFolder(m.CategoryRoot(category), ownerID)
}

// findOwnerFolder 按 ID 前缀在类别根目录下定位档案目录。
// 任一时刻每个档案至多存在一个目录；并发改名都会在这里解析到同一个源目录。
func (m *FolderManager) findOwnerFolder(categoryRoot string, ownerID uint) (string, bool, error) {
	entries, err := os.ReadDir(categoryRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("读取类别根目录失败: %w", err)
	}

	prefix := fmt.Sprintf("%d_", ownerID)
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			return entry.Name(), true, nil
		}
	}
	return "", false, nil
}

const maxFolderLabelLen = 50

var folderLabelAllowed = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// FolderName 是目录命名的唯一入口，create/rename/delete 共用这一份清洗逻辑。
func FolderName(ownerID uint, displayName string) string {
	label := folderLabelAllowed.ReplaceAllString(displayName, "")
	if len(label) > maxFolderLabelLen {
		label = label[:maxFolderLabelLen]
	}
	if label == "" {
		label = "profile"
	}
	return fmt.Sprintf("%d_%s", ownerID, label)
}
