package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BlogHandler struct{}

func NewBlogHandler() *BlogHandler {
	return &BlogHandler{}
}

type blogRequest struct {
	Title         string           `json:"title"`
	Excerpt       string           `json:"excerpt"`
	Content       string           `json:"content"`
	Category      string           `json:"category"`
	Tags          []string         `json:"tags"`
	Status        string           `json:"status"`
	Featured      bool             `json:"featured"`
	FeaturedImage models.BlogImage `json:"featured_image"`
}

// fillEngagement 批量填充当前用户的点赞/收藏状态
func fillEngagement(blogs []models.Blog, user *models.User) {
	if user == nil {
		return
	}
	for i := range blogs {
		blogs[i].IsLiked = blogs[i].Likes.Contains(user.ID)
		blogs[i].IsBookmarked = blogs[i].Bookmarks.Contains(user.ID)
	}
}

// normalizeTags 标签统一小写去空白
func normalizeTags(tags []string) models.StringList {
	out := make(models.StringList, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (h *BlogHandler) validate(req *blogRequest) string {
	req.Title = strings.TrimSpace(req.Title)
	req.Excerpt = strings.TrimSpace(req.Excerpt)
	switch {
	case req.Title == "":
		return "Title is required"
	case utf8.RuneCountInString(req.Title) > 200:
		return "Title must be less than 200 characters"
	case req.Excerpt == "":
		return "Excerpt is required"
	case utf8.RuneCountInString(req.Excerpt) > 300:
		return "Excerpt must be less than 300 characters"
	case req.Content == "":
		return "Content is required"
	case !models.IsValidCategory(req.Category):
		return "Invalid category"
	case req.Status != "" && req.Status != models.BlogStatusDraft && req.Status != models.BlogStatusPublished:
		return "Invalid status"
	}
	return ""
}

// uniqueSlug 由标题生成 slug，冲突时追加随机后缀
func uniqueSlug(title string, excludeID uint) string {
	slug := utils.Slugify(title)
	if slug == "" {
		slug = utils.RandString(8)
	}
	var existing models.Blog
	if err := db.DB.Where("slug = ? AND id <> ?", slug, excludeID).First(&existing).Error; err == nil {
		slug = fmt.Sprintf("%s-%s", slug, utils.RandString(4))
	}
	return slug
}

func invalidateBlogCaches(slug string) {
	utils.GetCache().Delete("blog:detail:" + slug)
	utils.GetCache().DeletePrefix("blog:list:")
}

// List 已发布博客列表 (GET /api/blogs)
// 支持分类/标签/featured 过滤、标题和正文搜索、分页
func (h *BlogHandler) List(c *gin.Context) {
	user := CurrentUser(c)
	page := utils.QueryInt(c.Query("page"), 1)
	limit := utils.QueryInt(c.Query("limit"), 9)

	// 匿名请求走共享缓存（带用户状态的响应不缓存）
	cacheKey := "blog:list:" + c.Request.URL.RawQuery
	if user == nil {
		if cached := utils.GetCache().Get(cacheKey); cached != nil {
			if data, ok := cached.(gin.H); ok {
				OK(c, http.StatusOK, "", data)
				return
			}
		}
	}

	query := db.DB.Model(&models.Blog{}).Where("status = ?", models.BlogStatusPublished)

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if featured := c.Query("featured"); featured != "" {
		query = query.Where("featured = ?", featured == "true")
	}
	if tag := c.Query("tag"); tag != "" {
		// 标签存 jsonb 数组，包含匹配
		query = query.Where("tags::text LIKE ?", fmt.Sprintf(`%%"%s"%%`, strings.ToLower(tag)))
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title ILIKE ? OR excerpt ILIKE ? OR content ILIKE ?", pattern, pattern, pattern)
	}

	var total int64
	query.Count(&total)

	order := "published_at DESC"
	if c.Query("sort") == "oldest" {
		order = "published_at ASC"
	}

	var blogs []models.Blog
	if err := query.Preload("Author").
		Omit("content"). // 列表不带正文
		Order(order).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&blogs).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error")
		return
	}

	fillEngagement(blogs, user)

	data := gin.H{
		"blogs":      blogs,
		"pagination": Pagination(page, limit, total),
	}
	if user == nil {
		utils.GetCache().Set(cacheKey, data, 1*time.Minute)
	}
	OK(c, http.StatusOK, "", data)
}

// Featured 精选博客 (GET /api/blogs/featured)
func (h *BlogHandler) Featured(c *gin.Context) {
	limit := utils.QueryInt(c.Query("limit"), 5)

	var blogs []models.Blog
	if err := db.DB.Preload("Author").
		Where("status = ? AND featured = ?", models.BlogStatusPublished, true).
		Omit("content").
		Order("published_at DESC").
		Limit(limit).
		Find(&blogs).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error")
		return
	}
	fillEngagement(blogs, CurrentUser(c))

	OK(c, http.StatusOK, "", gin.H{"blogs": blogs})
}

// Categories 分类统计 (GET /api/blogs/categories)
func (h *BlogHandler) Categories(c *gin.Context) {
	type CategoryCount struct {
		Category string `json:"category"`
		Count    int    `json:"count"`
	}
	var results []CategoryCount
	if err := db.DB.Model(&models.Blog{}).
		Select("category, COUNT(*) as count").
		Where("status = ?", models.BlogStatusPublished).
		Group("category").
		Order("count DESC").
		Scan(&results).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error")
		return
	}
	OK(c, http.StatusOK, "", gin.H{"categories": results})
}

// Bookmarked 当前用户收藏的博客 (GET /api/blogs/bookmarks)
func (h *BlogHandler) Bookmarked(c *gin.Context) {
	user := CurrentUser(c)
	page := utils.QueryInt(c.Query("page"), 1)
	limit := utils.QueryInt(c.Query("limit"), 9)

	// 收藏集合存在博客行内，containment 查询
	match := fmt.Sprintf(`%%"user":%d,%%`, user.ID)
	query := db.DB.Model(&models.Blog{}).
		Where("status = ? AND bookmarks::text LIKE ?", models.BlogStatusPublished, match)

	var total int64
	query.Count(&total)

	var blogs []models.Blog
	if err := query.Preload("Author").
		Omit("content").
		Order("published_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&blogs).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error")
		return
	}
	fillEngagement(blogs, user)

	OK(c, http.StatusOK, "", gin.H{
		"blogs":      blogs,
		"pagination": Pagination(page, limit, total),
	})
}

// Detail 博客详情 (GET /api/blogs/:slug)
// 共享缓存不含用户态字段，命中后再填充；每次访问都递增浏览量
func (h *BlogHandler) Detail(c *gin.Context) {
	slug := c.Param("slug")
	user := CurrentUser(c)

	cacheKey := "blog:detail:" + slug
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if blog, ok := cached.(*models.Blog); ok {
			db.DB.Model(&models.Blog{}).Where("id = ?", blog.ID).
				UpdateColumn("views", gorm.Expr("views + 1"))
			h.respondDetail(c, blog, user)
			return
		}
	}

	var blog models.Blog
	if err := db.DB.Preload("Author").
		Where("slug = ? AND status = ?", slug, models.BlogStatusPublished).
		First(&blog).Error; err != nil {
		Fail(c, http.StatusNotFound, "Blog not found")
		return
	}

	db.DB.Model(&blog).UpdateColumn("views", gorm.Expr("views + 1"))
	blog.Views++

	blog.ContentHTML = utils.RenderMarkdown(blog.Content)

	utils.GetCache().Set(cacheKey, &blog, 5*time.Minute)
	h.respondDetail(c, &blog, user)
}

func (h *BlogHandler) respondDetail(c *gin.Context, blog *models.Blog, user *models.User) {
	// 用户态字段不进缓存，按请求填充
	view := *blog
	if user != nil {
		view.IsLiked = blog.Likes.Contains(user.ID)
		view.IsBookmarked = blog.Bookmarks.Contains(user.ID)
	}

	var related []models.Blog
	db.DB.Preload("Author").
		Where("id <> ? AND category = ? AND status = ?", blog.ID, blog.Category, models.BlogStatusPublished).
		Omit("content").
		Order("published_at DESC").
		Limit(3).
		Find(&related)

	OK(c, http.StatusOK, "", gin.H{
		"blog":          view,
		"related_blogs": related,
	})
}

// ToggleLike 点赞/取消点赞 (POST /api/blogs/:slug/like)
func (h *BlogHandler) ToggleLike(c *gin.Context) {
	h.toggle(c, services.ToggleBlogLike, "liked")
}

// ToggleBookmark 收藏/取消收藏 (POST /api/blogs/:slug/bookmark)
func (h *BlogHandler) ToggleBookmark(c *gin.Context) {
	h.toggle(c, services.ToggleBlogBookmark, "bookmarked")
}

func (h *BlogHandler) toggle(c *gin.Context, fn func(*models.User, uint) (bool, int, error), key string) {
	user := CurrentUser(c)
	slug := c.Param("slug")

	var blog models.Blog
	if err := db.DB.Select("id, slug").
		Where("slug = ? AND status = ?", slug, models.BlogStatusPublished).
		First(&blog).Error; err != nil {
		Fail(c, http.StatusNotFound, "Blog not found")
		return
	}

	member, count, err := fn(user, blog.ID)
	if err != nil {
		FailErr(c, err)
		return
	}
	invalidateBlogCaches(slug)

	// 只返回成员状态和数量，不返回集合本身
	OK(c, http.StatusOK, "", gin.H{
		key:     member,
		"count": count,
	})
}

// ADMIN OPERATIONS

// AdminList 全部博客，含草稿 (GET /api/blogs/admin)
func (h *BlogHandler) AdminList(c *gin.Context) {
	page := utils.QueryInt(c.Query("page"), 1)
	limit := utils.QueryInt(c.Query("limit"), 10)

	query := db.DB.Model(&models.Blog{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if author := c.Query("author"); author != "" {
		query = query.Where("author_id = ?", utils.StringToInt(author))
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
	}

	var total int64
	query.Count(&total)

	var blogs []models.Blog
	if err := query.Preload("Author").
		Omit("content").
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&blogs).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error")
		return
	}

	OK(c, http.StatusOK, "", gin.H{
		"blogs":      blogs,
		"pagination": Pagination(page, limit, total),
	})
}

// AdminDetail 按 ID 查博客，不限状态 (GET /api/blogs/admin/:id)
func (h *BlogHandler) AdminDetail(c *gin.Context) {
	id := utils.StringToInt(c.Param("id"))

	var blog models.Blog
	if err := db.DB.Preload("Author").First(&blog, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "Blog not found")
		return
	}
	OK(c, http.StatusOK, "", gin.H{"blog": blog})
}

// Stats 博客统计 (GET /api/blogs/admin/stats)
func (h *BlogHandler) Stats(c *gin.Context) {
	type StatusStat struct {
		Status        string `json:"status"`
		Count         int    `json:"count"`
		TotalViews    int    `json:"total_views"`
		TotalLikes    int    `json:"total_likes"`
		TotalComments int    `json:"total_comments"`
	}
	var statusStats []StatusStat
	db.DB.Model(&models.Blog{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(views),0) as total_views, COALESCE(SUM(likes_count),0) as total_likes, COALESCE(SUM(comments_count),0) as total_comments").
		Group("status").
		Scan(&statusStats)

	var total, published, draft int64
	db.DB.Model(&models.Blog{}).Count(&total)
	db.DB.Model(&models.Blog{}).Where("status = ?", models.BlogStatusPublished).Count(&published)
	db.DB.Model(&models.Blog{}).Where("status = ?", models.BlogStatusDraft).Count(&draft)

	OK(c, http.StatusOK, "", gin.H{
		"overview": gin.H{
			"total_blogs":     total,
			"published_blogs": published,
			"draft_blogs":     draft,
		},
		"status_stats": statusStats,
	})
}

// Create 新建博客，仅管理员 (POST /api/blogs)
func (h *BlogHandler) Create(c *gin.Context) {
	user := CurrentUser(c)

	var req blogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.validate(&req); msg != "" {
		Fail(c, http.StatusBadRequest, msg)
		return
	}

	status := req.Status
	if status == "" {
		status = models.BlogStatusDraft
	}

	blog := models.Blog{
		Title:         req.Title,
		Slug:          uniqueSlug(req.Title, 0),
		Excerpt:       req.Excerpt,
		Content:       req.Content,
		Category:      req.Category,
		Tags:          normalizeTags(req.Tags),
		AuthorID:      user.ID,
		Status:        status,
		Featured:      req.Featured,
		FeaturedImage: req.FeaturedImage,
	}
	if blog.FeaturedImage.AltText == "" {
		blog.FeaturedImage.AltText = req.Title
	}
	if status == models.BlogStatusPublished {
		now := time.Now()
		blog.PublishedAt = &now
	}

	if err := db.DB.Create(&blog).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Failed to create blog")
		return
	}
	blog.Author = *user
	invalidateBlogCaches(blog.Slug)

	OK(c, http.StatusCreated, "Blog created successfully", gin.H{"blog": blog})
}

// Update 更新博客，仅管理员 (PUT /api/blogs/admin/:id)
func (h *BlogHandler) Update(c *gin.Context) {
	id := utils.StringToInt(c.Param("id"))

	var blog models.Blog
	if err := db.DB.First(&blog, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "Blog not found")
		return
	}

	var req blogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.validate(&req); msg != "" {
		Fail(c, http.StatusBadRequest, msg)
		return
	}

	oldSlug := blog.Slug
	if req.Title != blog.Title {
		blog.Slug = uniqueSlug(req.Title, blog.ID)
	}

	// 换封面图时清理旧图
	if req.FeaturedImage.PublicID != "" && req.FeaturedImage.PublicID != blog.FeaturedImage.PublicID {
		if old := blog.FeaturedImage.PublicID; old != "" {
			go func() {
				if err := services.DeleteImage(old); err != nil {
					log.Printf("Failed to delete old featured image %s: %v", old, err)
				}
			}()
		}
		blog.FeaturedImage = req.FeaturedImage
	}
	if req.FeaturedImage.AltText != "" {
		blog.FeaturedImage.AltText = req.FeaturedImage.AltText
	}

	blog.Title = req.Title
	blog.Excerpt = req.Excerpt
	blog.Content = req.Content
	blog.Category = req.Category
	blog.Tags = normalizeTags(req.Tags)
	blog.Featured = req.Featured
	if req.Status != "" && req.Status != blog.Status {
		blog.Status = req.Status
		if req.Status == models.BlogStatusPublished && blog.PublishedAt == nil {
			now := time.Now()
			blog.PublishedAt = &now
		}
	}

	if err := db.DB.Save(&blog).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Failed to update blog")
		return
	}
	invalidateBlogCaches(oldSlug)
	invalidateBlogCaches(blog.Slug)

	OK(c, http.StatusOK, "Blog updated successfully", gin.H{"blog": blog})
}

// Delete 删除博客及其评论和图床图片，仅管理员 (DELETE /api/blogs/admin/:id)
func (h *BlogHandler) Delete(c *gin.Context) {
	id := utils.StringToInt(c.Param("id"))

	var blog models.Blog
	if err := db.DB.First(&blog, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "Blog not found")
		return
	}

	// 图床图片异步清理，失败只记日志
	if publicID := blog.FeaturedImage.PublicID; publicID != "" {
		go func() {
			if err := services.DeleteImage(publicID); err != nil {
				log.Printf("Failed to delete featured image %s: %v", publicID, err)
			}
		}()
	}

	// 级联删除全部评论
	if err := db.DB.Where("blog_id = ?", blog.ID).Delete(&models.Comment{}).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Failed to delete comments")
		return
	}
	if err := db.DB.Delete(&blog).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Failed to delete blog")
		return
	}
	invalidateBlogCaches(blog.Slug)

	OK(c, http.StatusOK, "Blog deleted successfully", nil)
}
