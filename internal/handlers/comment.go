package handlers

import (
	"net/http"

	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct{}

func NewCommentHandler() *CommentHandler {
	return &CommentHandler{}
}

// blogBySlug 查已发布博客，评论路由都挂在 slug 下
func (h *CommentHandler) blogBySlug(c *gin.Context) (*models.Blog, bool) {
	var blog models.Blog
	if err := db.DB.Select("id, slug").
		Where("slug = ? AND status = ?", c.Param("slug"), models.BlogStatusPublished).
		First(&blog).Error; err != nil {
		Fail(c, http.StatusNotFound, "Blog not found")
		return nil, false
	}
	return &blog, true
}

// List 博客评论列表，顶层分页，回复内联 (GET /api/blogs/:slug/comments)
func (h *CommentHandler) List(c *gin.Context) {
	blog, ok := h.blogBySlug(c)
	if !ok {
		return
	}
	page := utils.QueryInt(c.Query("page"), 1)
	limit := utils.QueryInt(c.Query("limit"), 20)

	comments, total, err := services.ListComments(blog.ID, page, limit)
	if err != nil {
		FailErr(c, err)
		return
	}

	user := CurrentUser(c)
	fillCommentEngagement(comments, user)

	OK(c, http.StatusOK, "", gin.H{
		"comments":   comments,
		"pagination": Pagination(page, limit, total),
	})
}

func fillCommentEngagement(comments []models.Comment, user *models.User) {
	if user == nil {
		return
	}
	for i := range comments {
		comments[i].IsLiked = comments[i].Likes.Contains(user.ID)
		fillCommentEngagement(comments[i].Children, user)
	}
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

// Create 发表评论或回复 (POST /api/blogs/:slug/comments)
func (h *CommentHandler) Create(c *gin.Context) {
	blog, ok := h.blogBySlug(c)
	if !ok {
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := services.CreateComment(CurrentUser(c), blog.ID, req.Content, req.ParentID)
	if err != nil {
		FailErr(c, err)
		return
	}
	invalidateBlogCaches(blog.Slug)

	OK(c, http.StatusCreated, "Comment created successfully", gin.H{"comment": comment})
}

type editCommentRequest struct {
	Content string `json:"content"`
}

// Edit 编辑自己的评论 (PUT /api/comments/:id)
func (h *CommentHandler) Edit(c *gin.Context) {
	var req editCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := services.EditComment(CurrentUser(c), uint(utils.StringToInt(c.Param("id"))), req.Content)
	if err != nil {
		FailErr(c, err)
		return
	}
	OK(c, http.StatusOK, "Comment updated successfully", gin.H{"comment": comment})
}

// Delete 删除评论及其整棵回复子树 (DELETE /api/comments/:id)
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := services.DeleteComment(CurrentUser(c), uint(utils.StringToInt(c.Param("id")))); err != nil {
		FailErr(c, err)
		return
	}
	OK(c, http.StatusOK, "Comment deleted successfully", nil)
}

// ToggleLike 评论点赞开关 (POST /api/comments/:id/like)
func (h *CommentHandler) ToggleLike(c *gin.Context) {
	liked, count, err := services.ToggleCommentLike(CurrentUser(c), uint(utils.StringToInt(c.Param("id"))))
	if err != nil {
		FailErr(c, err)
		return
	}
	OK(c, http.StatusOK, "", gin.H{
		"liked": liked,
		"count": count,
	})
}

type flagCommentRequest struct {
	Reason string `json:"reason"`
}

// Flag 举报评论 (POST /api/comments/:id/flag)
func (h *CommentHandler) Flag(c *gin.Context) {
	var req flagCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := services.FlagComment(CurrentUser(c), uint(utils.StringToInt(c.Param("id"))), req.Reason); err != nil {
		FailErr(c, err)
		return
	}
	OK(c, http.StatusOK, "Comment flagged for review", nil)
}

type moderateCommentRequest struct {
	Status string `json:"status"`
}

// Moderate 管理员裁决评论状态 (PUT /api/comments/:id/moderate)
func (h *CommentHandler) Moderate(c *gin.Context) {
	var req moderateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := services.ModerateComment(CurrentUser(c), uint(utils.StringToInt(c.Param("id"))), req.Status)
	if err != nil {
		FailErr(c, err)
		return
	}
	OK(c, http.StatusOK, "Comment moderated successfully", gin.H{"comment": comment})
}

// FlaggedQueue 待审核评论队列，仅管理员 (GET /api/comments/flagged)
func (h *CommentHandler) FlaggedQueue(c *gin.Context) {
	page := utils.QueryInt(c.Query("page"), 1)
	limit := utils.QueryInt(c.Query("limit"), 20)

	comments, total, err := services.FlaggedComments(page, limit)
	if err != nil {
		FailErr(c, err)
		return
	}

	// 审核队列要看举报明细，模型对外隐藏该字段，这里单独带出
	items := make([]gin.H, 0, len(comments))
	for i := range comments {
		items = append(items, gin.H{
			"comment":    comments[i],
			"flagged_by": comments[i].FlaggedBy,
		})
	}

	OK(c, http.StatusOK, "", gin.H{
		"comments":   items,
		"pagination": Pagination(page, limit, total),
	})
}
