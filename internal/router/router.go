package router

import (
	"inkwell/internal/handlers"
	"inkwell/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部 API 路由
func RegisterRoutes(r *gin.Engine) {
	authHandler := handlers.NewAuthHandler()
	blogHandler := handlers.NewBlogHandler()
	commentHandler := handlers.NewCommentHandler()
	imageHandler := handlers.NewImageHandler()

	api := r.Group("/api")

	// 认证
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		auth.GET("/users", middleware.AuthRequired(), middleware.AdminRequired(), authHandler.ListUsers)
	}

	// 博客公开读取
	api.GET("/blogs", blogHandler.List)
	api.GET("/blogs/featured", blogHandler.Featured)
	api.GET("/blogs/categories", blogHandler.Categories)
	api.GET("/blogs/:slug", blogHandler.Detail)
	api.GET("/blogs/:slug/comments", commentHandler.List)

	// 需要登录
	authed := api.Group("", middleware.AuthRequired())
	{
		authed.GET("/blogs/bookmarks", blogHandler.Bookmarked)
		authed.POST("/blogs/:slug/like", blogHandler.ToggleLike)
		authed.POST("/blogs/:slug/bookmark", blogHandler.ToggleBookmark)

		authed.POST("/blogs/:slug/comments", commentHandler.Create)
		authed.PUT("/comments/:id", commentHandler.Edit)
		authed.DELETE("/comments/:id", commentHandler.Delete)
		authed.POST("/comments/:id/like", commentHandler.ToggleLike)
		authed.POST("/comments/:id/flag", commentHandler.Flag)
	}

	// 管理员
	admin := api.Group("", middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("/blogs/admin", blogHandler.AdminList)
		admin.GET("/blogs/admin/stats", blogHandler.Stats)
		admin.GET("/blogs/admin/:id", blogHandler.AdminDetail)
		admin.POST("/blogs", blogHandler.Create)
		admin.PUT("/blogs/admin/:id", blogHandler.Update)
		admin.DELETE("/blogs/admin/:id", blogHandler.Delete)

		admin.GET("/comments/flagged", commentHandler.FlaggedQueue)
		admin.PUT("/comments/:id/moderate", commentHandler.Moderate)

		admin.POST("/upload", imageHandler.Upload)
		admin.DELETE("/upload/:publicId", imageHandler.Delete)
	}
}
