package model

import "time"

// Profile 定义了 profile 表的 ORM 模型。
// ID 是档案的稳定身份，DisplayName 是可改名的展示标签；
// 存储目录名由两者拼成，但目录的归属始终以 ID 前缀为准。
type Profile struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DisplayName string    `gorm:"type:varchar(100);not null" json:"displayName"`
	AvatarURL   string    `gorm:"type:varchar(255)" json:"avatarUrl"`
	QRCodeURL   string    `gorm:"type:varchar(255)" json:"qrCodeUrl"`
	VisitCount  uint64    `gorm:"not null;default:0" json:"visitCount"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Profile) TableName() string {
	return "profile"
}

// ProfilePhoto 定义了 profile_photo 表的 ORM 模型。
// URL 与 ThumbURL 在上传时一次性写入，此后不随档案改名而重算。
type ProfilePhoto struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileID uint      `gorm:"not null;index" json:"profileId"`
	URL       string    `gorm:"type:varchar(255);not null" json:"url"`
	ThumbURL  string    `gorm:"type:varchar(255)" json:"thumbUrl"`
	ByteSize  int64     `gorm:"not null" json:"byteSize"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ProfilePhoto) TableName() string {
	return "profile_photo"
}

// ProfileVideo 定义了 profile_video 表的 ORM 模型。
// CoverURL 永不为空：上传时要么存入调用方提供的封面，要么引用固定占位图。
type ProfileVideo struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileID uint      `gorm:"not null;index" json:"profileId"`
	URL       string    `gorm:"type:varchar(255);not null" json:"url"`
	CoverURL  string    `gorm:"type:varchar(255);not null" json:"coverUrl"`
	ByteSize  int64     `gorm:"not null" json:"byteSize"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ProfileVideo) TableName() string {
	return "profile_video"
}

// EvidenceFile 定义了 evidence_file 表的 ORM 模型。
type EvidenceFile struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileID uint      `gorm:"not null;index" json:"profileId"`
	URL       string    `gorm:"type:varchar(255);not null" json:"url"`
	ByteSize  int64     `gorm:"not null" json:"byteSize"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (EvidenceFile) TableName() string {
	return "evidence_file"
}
