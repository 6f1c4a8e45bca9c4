// Package sniff 通过文件头的魔数（magic number）识别二进制内容的真实格式。
// 识别结果只取决于字节内容，与客户端声明的 MIME 或扩展名无关。
package sniff

import "bytes"

// Format 是识别出的文件格式标签。
type Format string

// 支持识别的格式集合。
const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatSVG     Format = "svg"
	FormatHEIC    Format = "heic"
	FormatAVIF    Format = "avif"
	FormatMP4     Format = "mp4"
	FormatMOV     Format = "mov"
	FormatAVI     Format = "avi"
)

// HeaderLen 是识别所有受支持格式所需读取的最大前缀字节数。
const HeaderLen = 16

// mimeByFormat 维护格式标签到规范 MIME 字符串的映射。
var mimeByFormat = map[Format]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatWebP: "image/webp",
	FormatGIF:  "image/gif",
	FormatBMP:  "image/bmp",
	FormatTIFF: "image/tiff",
	FormatSVG:  "image/svg+xml",
	FormatHEIC: "image/heic",
	FormatAVIF: "image/avif",
	FormatMP4:  "video/mp4",
	FormatMOV:  "video/quicktime",
	FormatAVI:  "video/x-msvideo",
}

// extByFormat 维护格式标签到规范扩展名的映射。
var extByFormat = map[Format]string{
	FormatJPEG: ".jpg",
	FormatPNG:  ".png",
	FormatWebP: ".webp",
	FormatGIF:  ".gif",
	FormatBMP:  ".bmp",
	FormatTIFF: ".tiff",
	FormatSVG:  ".svg",
	FormatHEIC: ".heic",
	FormatAVIF: ".avif",
	FormatMP4:  ".mp4",
	FormatMOV:  ".mov",
	FormatAVI:  ".avi",
}

// MIME 返回该格式的规范 MIME 字符串。
func (f Format) MIME() string {
	return mimeByFormat[f]
}

// Ext 返回该格式的规范扩展名（带点）。
func (f Format) Ext() string {
	return extByFormat[f]
}

// IsImage 判断该格式是否为图像格式。
func (f Format) IsImage() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatWebP, FormatGIF, FormatBMP, FormatTIFF, FormatSVG, FormatHEIC, FormatAVIF:
		return true
	}
	return false
}

// IsVideo 判断该格式是否为视频格式。
func (f Format) IsVideo() bool {
	switch f {
	case FormatMP4, FormatMOV, FormatAVI:
		return true
	}
	return false
}

// segment 描述签名中的一段：从 off 开始必须逐字节等于 match。
type segment struct {
	off   int
	match []byte
}

// signature 是一个格式的完整签名，所有段都命中才算匹配。
type signature struct {
	format   Format
	segments []segment
}

// signatures 是固定的签名表。各格式的签名集合互斥，匹配顺序不影响结果；
// 唯一需要注意的是 RIFF 与 ftyp 容器靠后续段区分出具体格式。
var signatures = []signature{
	{FormatJPEG, []segment{{0, []byte{0xFF, 0xD8, 0xFF}}}},
	{FormatPNG, []segment{{0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}}},
	{FormatGIF, []segment{{0, []byte("GIF87a")}}},
	{FormatGIF, []segment{{0, []byte("GIF89a")}}},
	{FormatWebP, []segment{{0, []byte("RIFF")}, {8, []byte("WEBP")}}},
	{FormatAVI, []segment{{0, []byte("RIFF")}, {8, []byte("AVI ")}}},
	{FormatBMP, []segment{{0, []byte("BM")}}},
	// TIFF 小端与大端两种字节序
	{FormatTIFF, []segment{{0, []byte{0x49, 0x49, 0x2A, 0x00}}}},
	{FormatTIFF, []segment{{0, []byte{0x4D, 0x4D, 0x00, 0x2A}}}},
	// ISO BMFF 容器：offset 4 处为 "ftyp"，offset 8 处的 brand 决定具体格式
	{FormatHEIC, []segment{{4, []byte("ftyp")}, {8, []byte("heic")}}},
	{FormatHEIC, []segment{{4, []byte("ftyp")}, {8, []byte("heix")}}},
	{FormatHEIC, []segment{{4, []byte("ftyp")}, {8, []byte("mif1")}}},
	{FormatAVIF, []segment{{4, []byte("ftyp")}, {8, []byte("avif")}}},
	{FormatAVIF, []segment{{4, []byte("ftyp")}, {8, []byte("avis")}}},
	{FormatMOV, []segment{{4, []byte("ftyp")}, {8, []byte("qt  ")}}},
	{FormatMP4, []segment{{4, []byte("ftyp")}, {8, []byte("isom")}}},
	{FormatMP4, []segment{{4, []byte("ftyp")}, {8, []byte("iso2")}}},
	{FormatMP4, []segment{{4, []byte("ftyp")}, {8, []byte("mp41")}}},
	{FormatMP4, []segment{{4, []byte("ftyp")}, {8, []byte("mp42")}}},
	{FormatMP4, []segment{{4, []byte("ftyp")}, {8, []byte("M4V ")}}},
}

// Detect 识别字节内容的真实格式。二进制签名只检查前 HeaderLen 个字节，
// SVG 的根元素检查会扫描更长的文本前缀；无法识别时返回 FormatUnknown。
func Detect(data []byte) Format {
	if len(data) == 0 {
		return FormatUnknown
	}

	for _, sig := range signatures {
		if matchSignature(data, sig) {
			return sig.format
		}
	}

	// SVG 是文本标记而非二进制格式，允许前导空白和 UTF-8 BOM
	if looksLikeSVG(data) {
		return FormatSVG
	}

	return FormatUnknown
}

func matchSignature(data []byte, sig signature) bool {
	for _, seg := range sig.segments {
		end := seg.off + len(seg.match)
		if end > len(data) {
			return false
		}
		if !bytes.Equal(data[seg.off:end], seg.match) {
			return false
		}
	}
	return true
}

// svgScanLen 是查找 svg 根元素时扫描的最大前缀长度。
// XML 声明和注释可能先于根元素出现，HeaderLen 不够用。
const svgScanLen = 512

// looksLikeSVG 检查内容是否是一份以 svg 为根元素的标记文本。
// 仅有 XML 声明不算数：任意 XML 文档都以它开头。
func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > svgScanLen {
		head = head[:svgScanLen]
	}
	head = bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF})
	head = bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(head, []byte("<svg")) {
		return true
	}
	if bytes.HasPrefix(head, []byte("<?xml")) {
		return bytes.Contains(head, []byte("<svg"))
	}
	return false
}
