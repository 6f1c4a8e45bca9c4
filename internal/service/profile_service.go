package service

import (
	"context"
	"errors"
	"fmt"

	"profile-media-go/internal/model"
	"profile-media-go/internal/ratelimit"
	"profile-media-go/internal/repository"
	"profile-media-go/internal/storage"
	"profile-media-go/pkg/kafka"
	"profile-media-go/pkg/log"
	"profile-media-go/pkg/tasks"
)

// ProfileService 接口定义了档案身份变更与访问记录相关的业务操作。
type ProfileService interface {
	Create(displayName string) (*model.Profile, error)
	Get(id uint) (*model.Profile, error)
	// UpdateDisplayName 更新展示名并投递目录改名任务。
	// 任务投递是发后不理的：改名结果只通过消费端日志观察，
	// 投递或执行失败都不影响已提交的展示名更新。
	UpdateDisplayName(id uint, newDisplayName string) error
	// Delete 删除档案的数据库记录，随后尽力而为地清理其存储目录。
	Delete(id uint) (storage.DeleteOutcome, error)
	// RecordVisit 按（地址, 档案）去重记录一次访问，返回本次是否计入。
	RecordVisit(ctx context.Context, id uint, sourceAddr string) (bool, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
	folders     *storage.FolderManager
	visits      *ratelimit.VisitTracker
	produce     func(tasks.FolderRenameTask) error // 测试中可替换
}

// NewProfileService 创建一个新的 ProfileService 实例。
func NewProfileService(profileRepo repository.ProfileRepository, folders *storage.FolderManager, visits *ratelimit.VisitTracker) ProfileService {
	return &profileService{
		profileRepo: profileRepo,
		folders:     folders,
		visits:      visits,
		produce:     kafka.ProduceRenameTask,
	}
}

// Create 创建一个新档案。
func (s *profileService) Create(displayName string) (*model.Profile, error) {
	if displayName == "" {
		return nil, errors.New("展示名不能为空")
	}
	profile := &model.Profile{DisplayName: displayName}
	if err := s.profileRepo.Create(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Get 查询档案。
func (s *profileService) Get(id uint) (*model.Profile, error) {
	return s.profileRepo.FindByID(id)
}

// UpdateDisplayName 实现 ProfileService 接口。
func (s *profileService) UpdateDisplayName(id uint, newDisplayName string) error {
	if newDisplayName == "" {
		return errors.New("展示名不能为空")
	}

	profile, err := s.profileRepo.FindByID(id)
	if err != nil {
		return err
	}
	oldDisplayName := profile.DisplayName

	if err := s.profileRepo.UpdateDisplayName(id, newDisplayName); err != nil {
		return err
	}

	// 展示名更新已提交，目录改名作为异步任务逐类别投递
	for _, category := range model.AllCategories {
		task := tasks.FolderRenameTask{
			Category: string(category),
			OwnerID:  id,
			OldName:  oldDisplayName,
			NewName:  newDisplayName,
		}
		if err := s.produce(task); err != nil {
			log.Warnw("投递目录改名任务失败",
				"profileID", id,
				"category", category,
				"error", err,
			)
		}
	}
	return nil
}

// Delete 实现 ProfileService 接口。
func (s *profileService) Delete(id uint) (storage.DeleteOutcome, error) {
	if err := s.profileRepo.Delete(id); err != nil {
		return storage.DeleteOutcome{}, err
	}

	// 数据库删除已提交，存储清理失败只汇总上报，不再回传错误
	outcome := s.folders.DeleteOwnerFolders(id)
	log.Infow("档案删除完成",
		"profileID", id,
		"deletedFolders", outcome.DeletedFolders,
		"errorCount", len(outcome.Errors),
	)
	return outcome, nil
}

// RecordVisit 实现 ProfileService 接口。
func (s *profileService) RecordVisit(ctx context.Context, id uint, sourceAddr string) (bool, error) {
	recorded, err := s.visits.Record(ctx, sourceAddr, id)
	if err != nil {
		return false, err
	}
	if !recorded {
		// 窗口内的重复访问静默丢弃，不算错误
		return false, nil
	}
	if err := s.profileRepo.IncrementVisitCount(id); err != nil {
		return false, err
	}
	return true, nil
}

// RenameTaskHandler 消费目录改名任务并调用 FolderManager 执行。
// 实现 kafka.TaskProcessor。
type RenameTaskHandler struct {
	folders *storage.FolderManager
}

// NewRenameTaskHandler 创建目录改名任务处理器。
func NewRenameTaskHandler(folders *storage.FolderManager) *RenameTaskHandler {
	return &RenameTaskHandler{folders: folders}
}

// Process 执行一次目录改名。目录不存在不算失败——该档案在此类别下
// 还没有任何上传；其余失败返回错误交由消费端的重试逻辑处理。
func (h *RenameTaskHandler) Process(_ context.Context, task tasks.FolderRenameTask) error {
	category, ok := model.ParseCategory(task.Category)
	if !ok {
		// 未知类别的任务无法重试出结果，记日志后按成功提交
		log.Warnf("目录改名任务携带未知类别: %s", task.Category)
		return nil
	}

	result := h.folders.RenameOwnerFolder(category, task.OwnerID, task.NewName)
	if !result.Success {
		if _, found, _ := h.folders.FindOwnerFolderName(category, task.OwnerID); !found {
			log.Infof("档案 %d 在类别 %s 下没有目录，改名任务跳过", task.OwnerID, category)
			return nil
		}
		return fmt.Errorf("目录改名失败: %s", result.Message)
	}

	log.Infow("目录改名完成",
		"profileID", task.OwnerID,
		"category", category,
		"message", result.Message,
	)
	return nil
}
