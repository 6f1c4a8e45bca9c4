package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"profile-media-go/internal/config"
	"profile-media-go/internal/model"
	"profile-media-go/internal/ratelimit"
	"profile-media-go/internal/repository"
	"profile-media-go/internal/storage"
	"profile-media-go/internal/transcode"
	"profile-media-go/internal/validate"
	"profile-media-go/pkg/log"
	"profile-media-go/pkg/sniff"

	"gorm.io/gorm"
)

// UploadRequest 是一次上传请求的输入。
// 调用者身份由外层认证中间件提供，这里不再做权限判断。
type UploadRequest struct {
	Data            []byte
	ClaimedMIME     string
	ClaimedFilename string
	Category        model.Category
	ProfileID       uint
	UserID          uint
	SourceAddr      string
	CoverData       []byte // 视频上传可选携带的封面图像
}

// UploadResult 是一次成功上传的输出。
type UploadResult struct {
	StoredURL      string `json:"storedUrl"`
	StoredFileName string `json:"storedFileName"`
	ByteSize       int64  `json:"byteSize"`
	AssetKind      string `json:"assetKind"` // image 或 video
	ThumbURL       string `json:"thumbUrl,omitempty"`
	CoverURL       string `json:"coverUrl,omitempty"`
	DisplayName    string `json:"displayName"`
}

// UploadService 接口定义了媒体上传管线。
type UploadService interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

type uploadService struct {
	gate        *ratelimit.UploadGate
	validator   *validate.Validator
	transcoder  *transcode.Transcoder
	thumbnailer *transcode.Transcoder
	folders     *storage.FolderManager
	profileRepo repository.ProfileRepository
	mediaCfg    config.MediaConfig
}

// 缩略图变体的外接框与编码质量，固定值。
const (
	thumbBoundingBox = 320
	thumbJPEGQuality = 80
)

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(
	gate *ratelimit.UploadGate,
	folders *storage.FolderManager,
	profileRepo repository.ProfileRepository,
	mediaCfg config.MediaConfig,
) UploadService {
	return &uploadService{
		gate:        gate,
		validator:   validate.NewValidator(mediaCfg),
		transcoder:  transcode.NewTranscoder(mediaCfg.BoundingBox, mediaCfg.JPEGQuality),
		thumbnailer: transcode.NewTranscoder(thumbBoundingBox, thumbJPEGQuality),
		folders:     folders,
		profileRepo: profileRepo,
		mediaCfg:    mediaCfg,
	}
}

// Upload 执行完整的上传管线：限流 → 校验 → 目录定位 → 转码落盘 → 登记记录。
// 硬性顺序约束：校验全部完成之前，不向永久存储写入任何字节。
func (s *uploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	// 1. 双键限流：按用户与按来源地址各判一次
	decision, err := s.gate.Allow(ctx, req.UserID, req.SourceAddr)
	if err != nil {
		log.Error("限流判定失败", err)
		return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "服务暂时不可用"}
	}
	if !decision.Allowed {
		return nil, &validate.Rejection{
			Code:    validate.ReasonRateLimited,
			Message: fmt.Sprintf("上传过于频繁，请在 %d 秒后重试", decision.RetryAfterSeconds),
		}
	}

	// 2. 内容校验
	accepted, rejection := s.validator.Validate(validate.Candidate{
		Data:            req.Data,
		ClaimedMIME:     req.ClaimedMIME,
		ClaimedFilename: req.ClaimedFilename,
		Category:        req.Category,
	})
	if rejection != nil {
		log.Infow("上传被拒绝",
			"userID", req.UserID,
			"category", req.Category,
			"reason", rejection.Code,
		)
		return nil, rejection
	}

	// 3. 确认归属档案存在并定位其目录
	profile, err := s.profileRepo.FindByID(req.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "档案不存在"}
		}
		log.Error("查询档案失败", err)
		return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "处理失败"}
	}

	folderName, err := s.folders.EnsureOwnerFolder(req.Category, profile.ID, profile.DisplayName)
	if err != nil {
		log.Error("定位档案目录失败", err)
		return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "处理失败"}
	}
	targetDir := filepath.Join(s.folders.CategoryRoot(req.Category), folderName)

	// 4. 按内容类型落盘并登记
	if accepted.Format.IsVideo() {
		return s.storeVideo(req, profile, folderName, targetDir, accepted)
	}
	return s.storeImage(req, profile, folderName, targetDir, accepted)
}

// storeImage 处理图像内容：SVG 原样存储，栅格图像重编码为规范格式。
func (s *uploadService) storeImage(req UploadRequest, profile *model.Profile, folderName, targetDir string, accepted *validate.Accepted) (*UploadResult, error) {
	var fileName string
	var err error

	baseName := transcode.BaseName()
	if accepted.Format == sniff.FormatSVG {
		// SVG 已通过更紧的大小上限与标记校验，无法重编码，原样落盘
		fileName, err = s.transcoder.StoreRaw(req.Data, targetDir, baseName, accepted.Format.Ext())
	} else {
		fileName, err = s.transcoder.ProcessImageAs(req.Data, targetDir, baseName)
	}
	if err != nil {
		log.Error("图像转码落盘失败", err)
		return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "处理失败"}
	}

	storedURL := storage.URLFor(s.mediaCfg.URLPrefix, req.Category, folderName, fileName)
	byteSize := s.fileSize(targetDir, fileName)

	result := &UploadResult{
		StoredURL:      storedURL,
		StoredFileName: fileName,
		ByteSize:       byteSize,
		AssetKind:      "image",
		DisplayName:    accepted.DisplayName,
	}

	// 先落盘、后登记：数据库引用只在文件写成之后产生
	switch req.Category {
	case model.CategoryAvatar:
		err = s.profileRepo.UpdateAvatarURL(profile.ID, storedURL)
	case model.CategoryServiceQR:
		err = s.profileRepo.UpdateQRCodeURL(profile.ID, storedURL)
	case model.CategoryPhoto:
		// 相册照片额外生成缩略图变体，与主图共用基础名
		thumbName, thumbErr := s.thumbnailer.ProcessImageAs(req.Data, targetDir, baseName+".thumb")
		if thumbErr != nil {
			log.Error("生成缩略图失败", thumbErr)
			return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "处理失败"}
		}
		result.ThumbURL = storage.URLFor(s.mediaCfg.URLPrefix, req.Category, folderName, thumbName)
		err = s.profileRepo.CreatePhoto(&model.ProfilePhoto{
			ProfileID: profile.ID,
			URL:       storedURL,
			ThumbURL:  result.ThumbURL,
			ByteSize:  byteSize,
		})
	case model.CategoryEvidence:
		err = s.profileRepo.CreateEvidence(&model.EvidenceFile{
			ProfileID: profile.ID,
			URL:       storedURL,
			ByteSize:  byteSize,
		})
	}
	if err != nil {
		log.Error("登记媒体记录失败", err)
		return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "处理失败"}
	}

	log.Infow("图像上传完成",
		"profileID", profile.ID,
		"category", req.Category,
		"storedUrl", storedURL,
		"byteSize", byteSize,
	)
	return result, nil
}

// storeVideo 处理视频内容：本体不做转码原样存储，封面要么来自调用方、
// 要么引用固定的占位图，视频记录永远带有可展示的封面。
func (s *uploadService) storeVideo(req UploadRequest, profile *model.Profile, folderName, targetDir string, accepted *validate.Accepted) (*UploadResult, error) {
	baseName := transcode.BaseName()

	// 封面先于视频本体完成校验：请求里的全部内容校验通过之前，
	// 不向永久存储写入任何字节
	hasCover := len(req.CoverData) > 0
	if hasCover {
		// 封面走与照片相同的校验与重编码路径
		_, rejection := s.validator.Validate(validate.Candidate{
			Data:            req.CoverData,
			ClaimedMIME:     "",
			ClaimedFilename: req.ClaimedFilename,
			Category:        model.CategoryPhoto,
		})
		if rejection != nil {
			return nil, rejection
		}
	}

	fileName, err := s.transcoder.StoreRaw(req.Data, targetDir, baseName, accepted.Format.Ext())
	if err != nil {
		log.Error("视频落盘失败", err)
		return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "处理失败"}
	}

	storedURL := storage.URLFor(s.mediaCfg.URLPrefix, req.Category, folderName, fileName)
	byteSize := s.fileSize(targetDir, fileName)

	coverURL := s.mediaCfg.DefaultVideoCover
	if hasCover {
		coverName, coverErr := s.thumbnailer.ProcessImageAs(req.CoverData, targetDir, baseName+".cover")
		if coverErr != nil {
			log.Error("视频封面转码失败", coverErr)
			return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "处理失败"}
		}
		coverURL = storage.URLFor(s.mediaCfg.URLPrefix, req.Category, folderName, coverName)
	}

	if err := s.profileRepo.CreateVideo(&model.ProfileVideo{
		ProfileID: profile.ID,
		URL:       storedURL,
		CoverURL:  coverURL,
		ByteSize:  byteSize,
	}); err != nil {
		log.Error("登记视频记录失败", err)
		return nil, &validate.Rejection{Code: validate.ReasonProcessingFailed, Message: "处理失败"}
	}

	log.Infow("视频上传完成",
		"profileID", profile.ID,
		"storedUrl", storedURL,
		"coverUrl", coverURL,
		"byteSize", byteSize,
	)
	return &UploadResult{
		StoredURL:      storedURL,
		StoredFileName: fileName,
		ByteSize:       byteSize,
		AssetKind:      "video",
		CoverURL:       coverURL,
		DisplayName:    accepted.DisplayName,
	}, nil
}

// fileSize 读取落盘文件的实际大小，失败时退回 0。
func (s *uploadService) fileSize(dir, name string) int64 {
	info, err := os.Stat(filepath.Join(dir, name))
	if err != nil {
		return 0
	}
	return info.Size()
}
