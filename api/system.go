package api

import (
	"net/http"
	"time"

	"expensetracker/database"
	"expensetracker/models"

	"github.com/gin-gonic/gin"
)

// SystemHandler 健康检查与公共数据
type SystemHandler struct{}

// NewSystemHandler 创建处理器
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// HealthResponse 健康检查结果
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Database  string    `json:"database" example:"connected"`
	UserCount int64     `json:"user_count"`
	Timestamp time.Time `json:"timestamp"`
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} Response{data=HealthResponse} "服务正常"
// @Failure 503 {object} Response{data=HealthResponse} "数据库不可用"
// @Router /api/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Database: "connected", Timestamp: time.Now()}

	if err := database.DB.Model(&models.User{}).Count(&resp.UserCount).Error; err != nil {
		resp.Status = "error"
		resp.Database = "disconnected"
		c.JSON(http.StatusServiceUnavailable, Response{
			Code:    http.StatusServiceUnavailable,
			Message: SafeErrorMessage(err, "数据库不可用"),
			Data:    resp,
		})
		return
	}

	Success(c, resp)
}

// Categories 消费类别列表
// @Summary 消费类别列表
// @Description 固定的 7 个类别，按展示顺序
// @Tags 系统
// @Produce json
// @Success 200 {object} Response{data=[]string} "获取成功"
// @Router /api/categories [get]
func (h *SystemHandler) Categories(c *gin.Context) {
	Success(c, models.GetCategories())
}
