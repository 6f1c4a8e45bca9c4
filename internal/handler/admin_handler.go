package handler

import (
	"net/http"

	"profile-media-go/internal/model"
	"profile-media-go/internal/service"
	"profile-media-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理管理员专用的对账与清理请求。
// 对账是显式触发的诊断操作，不存在自动执行的入口。
type AdminHandler struct {
	reconcileService service.ReconcileService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(reconcileService service.ReconcileService) *AdminHandler {
	return &AdminHandler{reconcileService: reconcileService}
}

// Scan 处理对账扫描的请求。
func (h *AdminHandler) Scan(c *gin.Context) {
	category, ok := model.ParseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的资产类别"})
		return
	}

	report, err := h.reconcileService.Scan(category)
	if err != nil {
		log.Error("对账扫描失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "对账扫描失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "对账扫描完成",
		"data":    report,
	})
}

// CleanupRequest 定义了清理 API 的请求体结构。
type CleanupRequest struct {
	Paths  []string `json:"paths" binding:"required"`
	DryRun *bool    `json:"dryRun" binding:"required"` // 必填，防止漏传时意外执行真删
}

// Cleanup 处理清理孤儿文件的请求。
func (h *AdminHandler) Cleanup(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	result := h.reconcileService.Cleanup(req.Paths, *req.DryRun)

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "清理操作完成",
		"data":    result,
	})
}
