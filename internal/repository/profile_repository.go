package repository

import (
	"errors"
	"fmt"

	"profile-media-go/internal/model"

	"gorm.io/gorm"
)

// ProfileRepository 接口定义了档案及其媒体记录的数据持久化操作。
type ProfileRepository interface {
	Create(profile *model.Profile) error
	FindByID(id uint) (*model.Profile, error)
	UpdateDisplayName(id uint, displayName string) error
	UpdateAvatarURL(id uint, url string) error
	UpdateQRCodeURL(id uint, url string) error
	IncrementVisitCount(id uint) error
	Delete(id uint) error

	CreatePhoto(photo *model.ProfilePhoto) error
	CreateVideo(video *model.ProfileVideo) error
	CreateEvidence(evidence *model.EvidenceFile) error

	// KnownURLs 返回某类别在数据库中被引用的全部 URL 的时点快照。
	// 对账扫描以它为准判定孤儿文件。
	KnownURLs(category model.Category) (map[string]struct{}, error)
}

// profileRepository 是 ProfileRepository 接口的 GORM 实现。
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建一个新的 ProfileRepository 实例。
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create 在数据库中创建一个新档案。
func (r *profileRepository) Create(profile *model.Profile) error {
	return r.db.Create(profile).Error
}

// FindByID 根据档案 ID 查找档案。
func (r *profileRepository) FindByID(id uint) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.First(&profile, id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateDisplayName 更新档案的展示名。
func (r *profileRepository) UpdateDisplayName(id uint, displayName string) error {
	return r.db.Model(&model.Profile{}).Where("id = ?", id).Update("display_name", displayName).Error
}

// UpdateAvatarURL 更新档案的头像 URL。
func (r *profileRepository) UpdateAvatarURL(id uint, url string) error {
	return r.db.Model(&model.Profile{}).Where("id = ?", id).Update("avatar_url", url).Error
}

// UpdateQRCodeURL 更新档案的服务二维码 URL。
func (r *profileRepository) UpdateQRCodeURL(id uint, url string) error {
	return r.db.Model(&model.Profile{}).Where("id = ?", id).Update("qr_code_url", url).Error
}

// IncrementVisitCount 将档案的访问计数加一。
func (r *profileRepository) IncrementVisitCount(id uint) error {
	return r.db.Model(&model.Profile{}).Where("id = ?", id).
		Update("visit_count", gorm.Expr("visit_count + 1")).Error
}

// Delete 删除档案及其全部媒体记录。
// 数据库删除是权威动作，存储目录的清理在此之后尽力而为地跟进。
func (r *profileRepository) Delete(id uint) error {
	var errs []error

	if err := r.db.Where("profile_id = ?", id).Delete(&model.ProfilePhoto{}).Error; err != nil {
		errs = append(errs, err)
	}
	if err := r.db.Where("profile_id = ?", id).Delete(&model.ProfileVideo{}).Error; err != nil {
		errs = append(errs, err)
	}
	if err := r.db.Where("profile_id = ?", id).Delete(&model.EvidenceFile{}).Error; err != nil {
		errs = append(errs, err)
	}
	if err := r.db.Delete(&model.Profile{}, id).Error; err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("删除档案记录部分失败（profileID=%d）: %v", id, errors.Join(errs...))
	}
	return nil
}

// CreatePhoto 在数据库中创建一条档案照片记录。
func (r *profileRepository) CreatePhoto(photo *model.ProfilePhoto) error {
	return r.db.Create(photo).Error
}

// CreateVideo 在数据库中创建一条档案视频记录。
func (r *profileRepository) CreateVideo(video *model.ProfileVideo) error {
	return r.db.Create(video).Error
}

// CreateEvidence 在数据库中创建一条凭证文件记录。
func (r *profileRepository) CreateEvidence(evidence *model.EvidenceFile) error {
	return r.db.Create(evidence).Error
}

// KnownURLs 汇总某类别在库中被引用的全部 URL 字段。
func (r *profileRepository) KnownURLs(category model.Category) (map[string]struct{}, error) {
	known := make(map[string]struct{})

	collect := func(tx *gorm.DB, column string) error {
		var urls []string
		if err := tx.Pluck(column, &urls).Error; err != nil {
			return err
		}
		for _, u := range urls {
			if u != "" {
				known[u] = struct{}{}
			}
		}
		return nil
	}

	switch category {
	case model.CategoryAvatar:
		if err := collect(r.db.Model(&model.Profile{}), "avatar_url"); err != nil {
			return nil, err
		}
	case model.CategoryPhoto:
		// 主图 URL 与缩略图变体都算被引用
		if err := collect(r.db.Model(&model.ProfilePhoto{}), "url"); err != nil {
			return nil, err
		}
		if err := collect(r.db.Model(&model.ProfilePhoto{}), "thumb_url"); err != nil {
			return nil, err
		}
	case model.CategoryVideo:
		// 视频本体与封面都存放在视频类别的目录下
		if err := collect(r.db.Model(&model.ProfileVideo{}), "url"); err != nil {
			return nil, err
		}
		if err := collect(r.db.Model(&model.ProfileVideo{}), "cover_url"); err != nil {
			return nil, err
		}
	case model.CategoryEvidence:
		if err := collect(r.db.Model(&model.EvidenceFile{}), "url"); err != nil {
			return nil, err
		}
	case model.CategoryServiceQR:
		if err := collect(r.db.Model(&model.Profile{}), "qr_code_url"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("未知的资产类别: %s", category)
	}

	return known, nil
}
