package services

import (
	"errors"
	"fmt"

	"inkwell/internal/db"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// ToggleBlogLike 博客点赞开关：在集合中则移除，否则带时间戳加入。
// 集合和缓存数量在同一条 UPDATE 里一起写，版本号做条件更新防止丢写。
// 只返回成员状态和数量，绝不返回点赞用户集合。
func ToggleBlogLike(user *models.User, blogID uint) (bool, int, error) {
	return toggleEngagement(user, blogID, "likes", "likes_count",
		func(b *models.Blog) *models.UserRefSet { return &b.Likes })
}

// ToggleBlogBookmark 博客收藏开关，语义同 ToggleBlogLike
func ToggleBlogBookmark(user *models.User, blogID uint) (bool, int, error) {
	return toggleEngagement(user, blogID, "bookmarks", "bookmarks_count",
		func(b *models.Blog) *models.UserRefSet { return &b.Bookmarks })
}

func toggleEngagement(user *models.User, blogID uint, setColumn, countColumn string, set func(*models.Blog) *models.UserRefSet) (bool, int, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var blog models.Blog
		if err := db.DB.First(&blog, blogID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, 0, fmt.Errorf("%w: blog", ErrNotFound)
			}
			return false, 0, err
		}

		current := *set(&blog)
		member := current.Contains(user.ID)
		var next models.UserRefSet
		if member {
			next = current.Remove(user.ID)
		} else {
			next = current.Add(user.ID)
		}

		res := db.DB.Model(&models.Blog{}).
			Where("id = ? AND version = ?", blog.ID, blog.Version).
			Updates(map[string]interface{}{
				setColumn:   next,
				countColumn: len(next),
				"version":   blog.Version + 1,
			})
		if res.Error != nil {
			return false, 0, res.Error
		}
		if res.RowsAffected == 1 {
			return !member, len(next), nil
		}
	}
	return false, 0, ErrConflict
}
