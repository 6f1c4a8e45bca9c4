package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"profile-media-go/internal/config"
	"profile-media-go/internal/model"
	"profile-media-go/internal/service"
	"profile-media-go/internal/validate"
	"profile-media-go/pkg/log"
	"profile-media-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// UploadHandler 负责处理所有与媒体上传相关的 API 请求。
type UploadHandler struct {
	uploadService service.UploadService
	mediaCfg      config.MediaConfig
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService, mediaCfg config.MediaConfig) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, mediaCfg: mediaCfg}
}

// Upload 处理媒体上传的请求。
// 表单字段：file（必填）、category（必填）、profileId（必填）、cover（视频可选封面）。
func (h *UploadHandler) Upload(c *gin.Context) {
	categoryStr := c.PostForm("category")
	profileIDStr := c.PostForm("profileId")
	if categoryStr == "" || profileIDStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少必要的参数"})
		return
	}

	category, ok := model.ParseCategory(categoryStr)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的资产类别"})
		return
	}
	profileID, err := strconv.ParseUint(profileIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的档案 ID"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未能获取上传的文件"})
		return
	}
	defer file.Close()

	// 读取上限由类别的大小上限约束，超出部分由校验层拒绝
	maxBytes := h.mediaCfg.MaxImageBytes
	if category.IsVideo() {
		maxBytes = h.mediaCfg.MaxVideoBytes
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取上传内容失败"})
		return
	}

	// 视频可选携带封面图像
	var coverData []byte
	if category.IsVideo() {
		if coverFile, _, coverErr := c.Request.FormFile("cover"); coverErr == nil {
			coverData, err = readAllAndClose(coverFile, h.mediaCfg.MaxImageBytes+1)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "读取封面内容失败"})
				return
			}
		}
	}

	claimsValue, _ := c.Get("claims")
	userClaims := claimsValue.(*token.CustomClaims)

	result, err := h.uploadService.Upload(c.Request.Context(), service.UploadRequest{
		Data:            data,
		ClaimedMIME:     header.Header.Get("Content-Type"),
		ClaimedFilename: header.Filename,
		Category:        category,
		ProfileID:       uint(profileID),
		UserID:          userClaims.UserID,
		SourceAddr:      c.ClientIP(),
		CoverData:       coverData,
	})
	if err != nil {
		h.writeRejection(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "上传成功",
		"data":    result,
	})
}

// writeRejection 把管线的拒绝原因映射为 HTTP 响应。
// 响应中只出现对调用方安全的原因描述。
func (h *UploadHandler) writeRejection(c *gin.Context, err error) {
	var rejection *validate.Rejection
	if !errors.As(err, &rejection) {
		log.Error("上传处理发生未分类错误", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	status := http.StatusBadRequest
	switch rejection.Code {
	case validate.ReasonRateLimited:
		status = http.StatusTooManyRequests
	case validate.ReasonPayloadTooLarge:
		status = http.StatusRequestEntityTooLarge
	case validate.ReasonProcessingFailed:
		status = http.StatusInternalServerError
	case validate.ReasonNotAuthenticated:
		status = http.StatusUnauthorized
	}

	c.JSON(status, gin.H{
		"code":    status,
		"reason":  rejection.Code,
		"message": rejection.Message,
	})
}

func readAllAndClose(f multipart.File, limit int64) ([]byte, error) {
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}
