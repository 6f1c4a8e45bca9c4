// Package model 定义了与数据库表对应的 Go 结构体以及核心领域类型。
package model

// Category 是上传资产的类别，属于一个固定的封闭集合。
type Category string

const (
	CategoryAvatar    Category = "avatar"
	CategoryPhoto     Category = "profile-photo"
	CategoryVideo     Category = "profile-video"
	CategoryEvidence  Category = "evidence"
	CategoryServiceQR Category = "service-qr"
)

// AllCategories 按固定顺序列出全部类别，供全量对账扫描使用。
var AllCategories = []Category{
	CategoryAvatar,
	CategoryPhoto,
	CategoryVideo,
	CategoryEvidence,
	CategoryServiceQR,
}

// ParseCategory 将外部传入的字符串解析为类别，未知值返回 false。
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryAvatar, CategoryPhoto, CategoryVideo, CategoryEvidence, CategoryServiceQR:
		return Category(s), true
	}
	return "", false
}

// DirName 返回该类别在存储根目录下的子目录名。
func (c Category) DirName() string {
	switch c {
	case CategoryAvatar:
		return "avatars"
	case CategoryPhoto:
		return "photos"
	case CategoryVideo:
		return "videos"
	case CategoryEvidence:
		return "evidence"
	case CategoryServiceQR:
		return "qrcodes"
	}
	return string(c)
}

// IsVideo 判断该类别是否接收视频内容。
func (c Category) IsVideo() bool {
	return c == CategoryVideo
}
