// Package transcode 把已通过校验的图像规范化为统一的存储编码。
// 重新编码本身就是安全手段：输出是可信编码器重新序列化的新位图，
// 签名校验后可能残留的内嵌脚本、元数据或多格式拼接内容都会被丢弃。
package transcode

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// 注册 WebP 解码器，imaging.Decode 底层走 image.Decode
	_ "golang.org/x/image/webp"
)

// CanonicalExt 是所有规范化图像的统一扩展名。
const CanonicalExt = ".jpg"

// Transcoder 执行图像的解码、缩放与重编码。
type Transcoder struct {
	boundingBox int // 输出的外接正方形边长
	quality     int // JPEG 编码质量
}

// NewTranscoder 创建转码器。
func NewTranscoder(boundingBox, quality int) *Transcoder {
	return &Transcoder{boundingBox: boundingBox, quality: quality}
}

// BaseName 生成一个抗碰撞的存储基础名。
// 同一档案目录下的并发写入各自独立生成，无需加锁。
func BaseName() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// ProcessImage 把校验通过的图像字节规范化后写入 targetDir，返回落盘文件名。
// 缩放只缩不放：小于外接框的图像保持原尺寸。
func (t *Transcoder) ProcessImage(data []byte, targetDir string) (string, error) {
	return t.ProcessImageAs(data, targetDir, BaseName())
}

// ProcessImageAs 同 ProcessImage，但使用调用方指定的基础名。
// 视频封面用它与视频本体共享同一基础名。
func (t *Transcoder) ProcessImageAs(data []byte, targetDir, baseName string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("解码图像失败: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > t.boundingBox || bounds.Dy() > t.boundingBox {
		img = imaging.Fit(img, t.boundingBox, t.boundingBox, imaging.Lanczos)
	}

	fileName := baseName + CanonicalExt
	err = t.writeFinal(targetDir, fileName, func(f *os.File) error {
		return imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(t.quality))
	})
	if err != nil {
		return "", err
	}
	return fileName, nil
}

// StoreRaw 把原始字节原样写入 targetDir，用于不做转码的视频内容。
// 文件名由系统生成，ext 必须来自魔数识别出的真实格式。
func (t *Transcoder) StoreRaw(data []byte, targetDir, baseName, ext string) (string, error) {
	fileName := baseName + ext
	err := t.writeFinal(targetDir, fileName, func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	})
	if err != nil {
		return "", err
	}
	return fileName, nil
}

// writeFinal 先写临时文件、完整成功后再改名到最终路径。
// 任何一步失败都会清掉临时文件，最终路径上不会留下半成品。
func (t *Transcoder) writeFinal(targetDir, fileName string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(targetDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("写入内容失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(targetDir, fileName)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("落盘改名失败: %w", err)
	}
	return nil
}
