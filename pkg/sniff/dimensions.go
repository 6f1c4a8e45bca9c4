package sniff

import (
	"bytes"
	"fmt"
	"image"

	// 注册各栅格格式的解码器，DecodeConfig 只读文件头即可取得宽高
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Dimensions 只解码图像头部，返回像素宽高，不加载完整位图。
// 用于在解码前拦截解压炸弹类输入。
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("解码图像头部失败: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
