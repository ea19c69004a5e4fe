package api

import (
	"errors"
	"strings"
	"unicode"

	"expensetracker/config"
	"expensetracker/database"
	"expensetracker/middleware"
	"expensetracker/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// SignupRequest 注册请求
type SignupRequest struct {
	Name     string `json:"name" binding:"required,max=100" example:"Jane Doe"`
	Email    string `json:"email" binding:"required,email,max=100" example:"jane@example.com"`
	Password string `json:"password" binding:"required,min=8,max=72" example:"Password123"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"Password123"`
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// validatePassword 至少包含大写字母、小写字母和数字
func validatePassword(password string) error {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return errors.New("密码必须同时包含大写字母、小写字母和数字")
	}
	return nil
}

// Signup 用户注册
// @Summary 用户注册
// @Description 创建新用户账号，邮箱统一转为小写，注册成功直接返回 token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body SignupRequest true "注册信息"
// @Success 200 {object} Response{data=AuthResponse} "注册成功"
// @Failure 400 {object} Response "请求参数错误或邮箱已被使用"
// @Failure 500 {object} Response "服务器错误"
// @Router /api/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		BadRequest(c, "姓名不能为空")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		BadRequest(c, err.Error())
		return
	}

	// 检查邮箱是否已存在
	var existing models.User
	err := database.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		BadRequest(c, "邮箱已被使用")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		InternalError(c, SafeErrorMessage(err, "注册失败"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
	}
	if err := database.DB.Create(&user).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建用户失败"))
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	SuccessWithMessage(c, "注册成功", AuthResponse{Token: token, User: user})
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用邮箱和密码登录获取 JWT token（邮箱不区分大小写）
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=AuthResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Router /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c, "邮箱或密码错误")
		} else {
			InternalError(c, SafeErrorMessage(err, "登录失败"))
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		Unauthorized(c, "邮箱或密码错误")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	Success(c, AuthResponse{Token: token, User: user})
}

// Me 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	Success(c, user)
}
