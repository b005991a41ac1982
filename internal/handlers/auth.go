package handlers

import (
	"net/http"
	"net/mail"
	"strings"

	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// createUser 创建新用户的通用函数
func (h *AuthHandler) createUser(username, email, password string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Avatar:   utils.GetRandomEmoji(), // 随机 emoji 头像
		Role:     models.RoleUser,
		IsActive: true,
	}

	if err := db.DB.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// Register 注册 (POST /api/auth/register)
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" {
		Fail(c, http.StatusBadRequest, "Username is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		Fail(c, http.StatusBadRequest, "Please include a valid email")
		return
	}
	if len(req.Password) < 6 {
		Fail(c, http.StatusBadRequest, "Please enter a password with 6 or more characters")
		return
	}

	var existing models.User
	if err := db.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		Fail(c, http.StatusConflict, "Email already registered")
		return
	}

	user, err := h.createUser(req.Username, req.Email, req.Password)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	OK(c, http.StatusCreated, "User registered successfully", gin.H{
		"token": token,
		"user":  user,
	})
}

// Login 登录 (POST /api/auth/login)
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := db.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		Fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !utils.CheckPasswordHash(req.Password, user.Password) {
		Fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		Fail(c, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	OK(c, http.StatusOK, "", gin.H{
		"token": token,
		"user":  user,
	})
}

// Me 当前登录用户 (GET /api/auth/me)
func (h *AuthHandler) Me(c *gin.Context) {
	OK(c, http.StatusOK, "", gin.H{"user": CurrentUser(c)})
}

// ListUsers 用户列表，仅管理员 (GET /api/auth/users)
func (h *AuthHandler) ListUsers(c *gin.Context) {
	var users []models.User
	if err := db.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error")
		return
	}
	OK(c, http.StatusOK, "", gin.H{"users": users})
}
