// Package validate 实现上传内容的校验：大小上限、真实类型识别与允许列表、
// 声明类型交叉校验、栅格尺寸探测以及展示用文件名的清洗。
// 校验全部通过前，不允许向永久存储写入任何字节。
package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"profile-media-go/internal/config"
	"profile-media-go/internal/model"
	"profile-media-go/pkg/log"
	"profile-media-go/pkg/sniff"
)

// 对调用方可见的拒绝原因代码，固定集合。
const (
	ReasonPayloadTooLarge   = "payload-too-large"
	ReasonUnrecognizedType  = "unrecognized-or-disallowed-type"
	ReasonDimensionExceeded = "dimension-or-pixel-count-exceeded"
	ReasonProcessingFailed  = "processing-failed"
	ReasonRateLimited       = "rate-limited"
	ReasonNotAuthenticated  = "not-authenticated"
)

// Rejection 是一次校验拒绝。Message 是对调用方安全的原因描述，
// 不含服务器路径或堆栈信息。
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口。
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Candidate 是一次上传请求携带的原始内容与声明元数据。
// 只在校验与转码期间存在，从不原样落盘。
type Candidate struct {
	Data            []byte
	ClaimedMIME     string
	ClaimedFilename string
	Category        model.Category
}

// Accepted 是校验通过后的结果。
type Accepted struct {
	Format      sniff.Format
	DisplayName string // 清洗后的声明文件名，仅用于展示，永不作为存储名
	Width       int    // 栅格图像的像素宽，其余类型为 0
	Height      int
}

// Validator 按类别策略执行上传校验。
type Validator struct {
	cfg config.MediaConfig
}

// NewValidator 创建校验器。
func NewValidator(cfg config.MediaConfig) *Validator {
	return &Validator{cfg: cfg}
}

// allowListByCategory 是各类别接受的真实格式允许列表。
var allowListByCategory = map[model.Category][]sniff.Format{
	model.CategoryAvatar:    {sniff.FormatJPEG, sniff.FormatPNG, sniff.FormatWebP},
	model.CategoryPhoto:     {sniff.FormatJPEG, sniff.FormatPNG, sniff.FormatWebP},
	model.CategoryVideo:     {sniff.FormatMP4, sniff.FormatMOV, sniff.FormatAVI},
	model.CategoryEvidence:  {sniff.FormatJPEG, sniff.FormatPNG, sniff.FormatWebP},
	model.CategoryServiceQR: {sniff.FormatJPEG, sniff.FormatPNG, sniff.FormatWebP, sniff.FormatSVG},
}

// probeable 列出可以只解码头部取得宽高的栅格格式。
var probeable = map[sniff.Format]bool{
	sniff.FormatJPEG: true,
	sniff.FormatPNG:  true,
	sniff.FormatWebP: true,
	sniff.FormatGIF:  true,
	sniff.FormatBMP:  true,
	sniff.FormatTIFF: true,
}

// Validate 对上传候选执行全部校验，通过返回 Accepted，否则返回 Rejection。
func (v *Validator) Validate(c Candidate) (*Accepted, *Rejection) {
	size := int64(len(c.Data))

	// 1. 大小校验
	if size == 0 {
		return nil, &Rejection{Code: ReasonPayloadTooLarge, Message: "上传内容为空"}
	}
	if maxBytes := v.maxBytes(c.Category); size > maxBytes {
		return nil, &Rejection{Code: ReasonPayloadTooLarge, Message: fmt.Sprintf("上传内容超过大小上限 %d 字节", maxBytes)}
	}

	// 2. 魔数识别，结果只取决于字节内容
	format := sniff.Detect(c.Data)
	if format == sniff.FormatUnknown {
		return nil, &Rejection{Code: ReasonUnrecognizedType, Message: "无法识别的文件类型"}
	}

	// 3. SVG 是标记文本，独立收紧大小上限
	if format == sniff.FormatSVG && size > v.cfg.MaxSVGBytes {
		return nil, &Rejection{Code: ReasonPayloadTooLarge, Message: fmt.Sprintf("SVG 内容超过大小上限 %d 字节", v.cfg.MaxSVGBytes)}
	}

	// 4. 类别允许列表
	if !formatAllowed(c.Category, format) {
		return nil, &Rejection{Code: ReasonUnrecognizedType, Message: fmt.Sprintf("该类别不接受 %s 类型的内容", format)}
	}

	// 5. 声明类型交叉校验：不一致即拒绝，唯一放行的别名是 jpeg/jpg
	if c.ClaimedMIME == "" {
		log.Warnf("上传未声明 MIME 类型，按真实类型 %s 处理", format)
	} else if !mimeMatches(c.ClaimedMIME, format) {
		log.Warnw("声明类型与真实类型不符",
			"claimedMime", c.ClaimedMIME,
			"detectedFormat", format,
		)
		return nil, &Rejection{Code: ReasonUnrecognizedType, Message: fmt.Sprintf("声明类型 %s 与真实类型 %s 不符", c.ClaimedMIME, format.MIME())}
	}

	// 6. 栅格格式只解码头部取宽高，拦截解压炸弹
	var width, height int
	if probeable[format] {
		var err error
		width, height, err = sniff.Dimensions(c.Data)
		if err != nil {
			return nil, &Rejection{Code: ReasonUnrecognizedType, Message: "图像头部损坏或不完整"}
		}
		if width > v.cfg.MaxDimension || height > v.cfg.MaxDimension {
			return nil, &Rejection{Code: ReasonDimensionExceeded, Message: fmt.Sprintf("图像单边尺寸超过上限 %d 像素", v.cfg.MaxDimension)}
		}
		if int64(width)*int64(height) > v.cfg.MaxPixels {
			return nil, &Rejection{Code: ReasonDimensionExceeded, Message: fmt.Sprintf("图像像素总数超过上限 %d", v.cfg.MaxPixels)}
		}
	}

	return &Accepted{
		Format:      format,
		DisplayName: SanitizeFilename(c.ClaimedFilename),
		Width:       width,
		Height:      height,
	}, nil
}

// maxBytes 返回类别适用的大小上限。
func (v *Validator) maxBytes(category model.Category) int64 {
	if category.IsVideo() {
		return v.cfg.MaxVideoBytes
	}
	return v.cfg.MaxImageBytes
}

func formatAllowed(category model.Category, format sniff.Format) bool {
	for _, f := range allowListByCategory[category] {
		if f == format {
			return true
		}
	}
	return false
}

// mimeMatches 判断声明 MIME 是否与真实格式一致。
// 唯一允许的别名是 image/jpg 对应 jpeg，其余必须与规范 MIME 完全相等。
func mimeMatches(claimed string, format sniff.Format) bool {
	claimed = strings.ToLower(strings.TrimSpace(claimed))
	if claimed == format.MIME() {
		return true
	}
	return format == sniff.FormatJPEG && claimed == "image/jpg"
}

const maxDisplayNameLen = 100

var filenameAllowed = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename 清洗调用方声明的文件名，仅保留展示用途。
// 去掉路径成分与穿越序列，限制字符集，剥去前导点，并在保留扩展名的前提下截断。
// 存储名始终由系统生成，这里的结果从不参与寻址。
func SanitizeFilename(name string) string {
	// 路径成分与穿越序列一律去除
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	name = filenameAllowed.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")

	if name == "" {
		return "file"
	}
	if len(name) <= maxDisplayNameLen {
		return name
	}

	// 超长时截断主体、保留扩展名
	ext := filepath.Ext(name)
	if len(ext) >= maxDisplayNameLen {
		return name[:maxDisplayNameLen]
	}
	return name[:maxDisplayNameLen-len(ext)] + ext
}
