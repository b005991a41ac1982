package handlers

import (
	"net/http"
	"strings"

	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

// 图床上传限制 5MB
const maxImageSize = 5 << 20

type ImageHandler struct{}

func NewImageHandler() *ImageHandler {
	return &ImageHandler{}
}

// Upload 上传图片到图床，仅管理员 (POST /api/upload)
// 返回 public_id 和 url，博客只保存这个引用
func (h *ImageHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		Fail(c, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		Fail(c, http.StatusBadRequest, "Image must be less than 5MB")
		return
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		Fail(c, http.StatusBadRequest, "File must be an image")
		return
	}

	folder := c.DefaultPostForm("folder", "blog-images")

	result, err := services.UploadImage(file, header, folder)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Image upload failed")
		return
	}

	OK(c, http.StatusCreated, "Image uploaded successfully", gin.H{
		"public_id": result.PublicID,
		"url":       result.URL,
	})
}

// Delete 删除图床图片，仅管理员 (DELETE /api/upload/:publicId)
func (h *ImageHandler) Delete(c *gin.Context) {
	publicID := c.Param("publicId")
	if folder := c.Query("folder"); folder != "" {
		publicID = folder + "/" + publicID
	}

	if err := services.DeleteImage(publicID); err != nil {
		Fail(c, http.StatusInternalServerError, "Image deletion failed")
		return
	}
	OK(c, http.StatusOK, "Image deleted successfully", nil)
}
