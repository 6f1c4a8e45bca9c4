package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"profile-media-go/internal/model"
	"profile-media-go/internal/repository"
	"profile-media-go/internal/storage"
	"profile-media-go/pkg/log"
)

// OrphanFile 是对账扫描发现的一个未被引用的文件。
type OrphanFile struct {
	URL      string         `json:"url"`
	Path     string         `json:"path"` // 存储相对路径，日志与响应中不出现绝对路径
	ByteSize int64          `json:"byteSize"`
	Category model.Category `json:"category"`
	Reason   string         `json:"reason"`
}

// ReconciliationReport 是一次对账扫描的结果，每次扫描重新生成，不持久化。
type ReconciliationReport struct {
	Category         model.Category `json:"category"`
	ScannedFiles     int            `json:"scannedFiles"`
	Orphans          []OrphanFile   `json:"orphans"`
	TotalOrphanBytes int64          `json:"totalOrphanBytes"`
}

// CleanupResult 是一次清理操作的结果。
// DryRun 回显本次调用的模式：为 true 时 DeletedCount 与 FreedBytes
// 是将要删除的核算值，磁盘上没有任何文件被删除。
type CleanupResult struct {
	DryRun       bool     `json:"dryRun"`
	DeletedCount int      `json:"deletedCount"`
	FreedBytes   int64    `json:"freedBytes"`
	Errors       []string `json:"errors"`
}

// ReconcileService 把存储目录树与数据库引用做对账：发现孤儿文件、
// 经管理员确认后清理。这是诊断工具而非后台常驻任务——快照可能滞后于
// 写入，误删仍被引用的文件是数据丢失事故，先 dry-run 再删除是既定流程。
type ReconcileService interface {
	Scan(category model.Category) (*ReconciliationReport, error)
	Cleanup(paths []string, dryRun bool) CleanupResult
}

type reconcileService struct {
	folders     *storage.FolderManager
	profileRepo repository.ProfileRepository
	urlPrefix   string
}

// NewReconcileService 创建对账服务。
func NewReconcileService(folders *storage.FolderManager, profileRepo repository.ProfileRepository, urlPrefix string) ReconcileService {
	return &reconcileService{folders: folders, profileRepo: profileRepo, urlPrefix: urlPrefix}
}

// Scan 遍历类别根目录下的所有叶子文件，按上传落盘的同一套口径计算
// 存储相对 URL，再与数据库引用快照求差。档案子目录对遍历透明。
func (s *reconcileService) Scan(category model.Category) (*ReconciliationReport, error) {
	known, err := s.profileRepo.KnownURLs(category)
	if err != nil {
		return nil, fmt.Errorf("获取数据库引用快照失败: %w", err)
	}

	report := &ReconciliationReport{Category: category, Orphans: []OrphanFile{}}
	categoryRoot := s.folders.CategoryRoot(category)

	walkErr := filepath.Walk(categoryRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		// 转码中途的临时文件不参与对账
		if strings.HasPrefix(info.Name(), ".tmp-") {
			return nil
		}

		report.ScannedFiles++

		url, err := s.folders.URLForPath(s.urlPrefix, path)
		if err != nil {
			return err
		}
		if _, ok := known[url]; ok {
			return nil
		}

		rel, _ := filepath.Rel(s.folders.Root(), path)
		report.Orphans = append(report.Orphans, OrphanFile{
			URL:      url,
			Path:     filepath.ToSlash(rel),
			ByteSize: info.Size(),
			Category: category,
			Reason:   "no matching database record",
		})
		report.TotalOrphanBytes += info.Size()
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("遍历类别目录失败: %w", walkErr)
	}

	log.Infow("对账扫描完成",
		"category", category,
		"scannedFiles", report.ScannedFiles,
		"orphans", len(report.Orphans),
		"totalOrphanBytes", report.TotalOrphanBytes,
	)
	return report, nil
}

// Cleanup 删除指定的路径列表（通常是上一次扫描的孤儿集合）。
// 每个路径都强制检查落在存储根目录之内，畸形或被篡改的列表
// 只会产生逐条错误，不会删到存储之外。dryRun 只做大小核算，不删除。
func (s *reconcileService) Cleanup(paths []string, dryRun bool) CleanupResult {
	result := CleanupResult{DryRun: dryRun}

	for _, p := range paths {
		abs, ok := s.resolveWithinRoot(p)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: 路径在存储根目录之外，拒绝删除", p))
			continue
		}

		info, err := os.Stat(abs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		if info.IsDir() {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: 是目录而非文件，拒绝删除", p))
			continue
		}

		if !dryRun {
			if err := os.Remove(abs); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p, err))
				continue
			}
		}
		result.DeletedCount++
		result.FreedBytes += info.Size()
	}

	log.Infow("清理操作完成",
		"dryRun", dryRun,
		"deletedCount", result.DeletedCount,
		"freedBytes", result.FreedBytes,
		"errorCount", len(result.Errors),
	)
	return result
}

// resolveWithinRoot 把传入路径解析为绝对路径并确认其位于存储根目录之内。
// 相对路径按存储根目录解释。
func (s *reconcileService) resolveWithinRoot(p string) (string, bool) {
	root, err := filepath.Abs(s.folders.Root())
	if err != nil {
		return "", false
	}

	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, p)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return abs, true
}
