package handler

import (
	"errors"
	"net/http"
	"strconv"

	"profile-media-go/internal/service"
	"profile-media-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProfileHandler 负责处理档案身份与访问记录相关的 API 请求。
type ProfileHandler struct {
	profileService service.ProfileService
}

// NewProfileHandler 创建一个新的 ProfileHandler 实例。
func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// CreateProfileRequest 定义了创建档案 API 的请求体结构。
type CreateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// Create 处理创建档案的请求。
func (h *ProfileHandler) Create(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	profile, err := h.profileService.Create(req.DisplayName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "档案创建成功",
		"data":    profile,
	})
}

// Get 处理查询档案的请求。
func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := h.profileID(c)
	if !ok {
		return
	}

	profile, err := h.profileService.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "档案不存在"})
			return
		}
		log.Error("查询档案失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": profile})
}

// UpdateDisplayNameRequest 定义了更新展示名 API 的请求体结构。
type UpdateDisplayNameRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// UpdateDisplayName 处理更新展示名的请求。
// 目录改名任务在服务层异步投递，本次请求不等待其结果。
func (h *ProfileHandler) UpdateDisplayName(c *gin.Context) {
	id, ok := h.profileID(c)
	if !ok {
		return
	}

	var req UpdateDisplayNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	if err := h.profileService.UpdateDisplayName(id, req.DisplayName); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "档案不存在"})
			return
		}
		log.Error("更新展示名失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "展示名更新成功"})
}

// Delete 处理删除档案的请求。
// 存储清理结果随响应返回，仅供运维观察，不影响删除本身的结果。
func (h *ProfileHandler) Delete(c *gin.Context) {
	id, ok := h.profileID(c)
	if !ok {
		return
	}

	outcome, err := h.profileService.Delete(id)
	if err != nil {
		log.Error("删除档案失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "档案删除成功",
		"data":    outcome,
	})
}

// Visit 处理记录档案访问的请求。
func (h *ProfileHandler) Visit(c *gin.Context) {
	id, ok := h.profileID(c)
	if !ok {
		return
	}

	recorded, err := h.profileService.RecordVisit(c.Request.Context(), id, c.ClientIP())
	if err != nil {
		log.Error("记录访问失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": gin.H{"recorded": recorded},
	})
}

// profileID 解析路径参数中的档案 ID。
func (h *ProfileHandler) profileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的档案 ID"})
		return 0, false
	}
	return uint(id), true
}
