package service

import (
	"fmt"

	"gorm.io/gorm"

	"profile-media-go/internal/model"
)

// fakeProfileRepo 是 repository.ProfileRepository 的内存实现，仅测试使用。
type fakeProfileRepo struct {
	profiles map[uint]*model.Profile
	photos   []*model.ProfilePhoto
	videos   []*model.ProfileVideo
	evidence []*model.EvidenceFile
	known    map[model.Category]map[string]struct{}
	deleted  []uint
	nextID   uint
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		profiles: make(map[uint]*model.Profile),
		known:    make(map[model.Category]map[string]struct{}),
	}
}

// addKnown 把 URL 登记为某类别的数据库引用。
func (f *fakeProfileRepo) addKnown(category model.Category, urls ...string) {
	if f.known[category] == nil {
		f.known[category] = make(map[string]struct{})
	}
	for _, u := range urls {
		f.known[category][u] = struct{}{}
	}
}

func (f *fakeProfileRepo) Create(profile *model.Profile) error {
	f.nextID++
	profile.ID = f.nextID
	f.profiles[profile.ID] = profile
	return nil
}

func (f *fakeProfileRepo) FindByID(id uint) (*model.Profile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

func (f *fakeProfileRepo) UpdateDisplayName(id uint, displayName string) error {
	profile, ok := f.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	profile.DisplayName = displayName
	return nil
}

func (f *fakeProfileRepo) UpdateAvatarURL(id uint, url string) error {
	profile, ok := f.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	profile.AvatarURL = url
	return nil
}

func (f *fakeProfileRepo) UpdateQRCodeURL(id uint, url string) error {
	profile, ok := f.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	profile.QRCodeURL = url
	return nil
}

func (f *fakeProfileRepo) IncrementVisitCount(id uint) error {
	profile, ok := f.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	profile.VisitCount++
	return nil
}

func (f *fakeProfileRepo) Delete(id uint) error {
	if _, ok := f.profiles[id]; !ok {
		return fmt.Errorf("档案 %d 不存在", id)
	}
	delete(f.profiles, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeProfileRepo) CreatePhoto(photo *model.ProfilePhoto) error {
	f.photos = append(f.photos, photo)
	return nil
}

func (f *fakeProfileRepo) CreateVideo(video *model.ProfileVideo) error {
	f.videos = append(f.videos, video)
	return nil
}

func (f *fakeProfileRepo) CreateEvidence(evidence *model.EvidenceFile) error {
	f.evidence = append(f.evidence, evidence)
	return nil
}

func (f *fakeProfileRepo) KnownURLs(category model.Category) (map[string]struct{}, error) {
	snapshot := make(map[string]struct{}, len(f.known[category]))
	for u := range f.known[category] {
		snapshot[u] = struct{}{}
	}
	return snapshot, nil
}
