package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/utils"

	"gorm.io/gorm"
)

// maxWriteAttempts 乐观锁条件更新的最大重试次数
const maxWriteAttempts = 3

const maxCommentLength = 1000

// validateContent 校验评论内容，持久化之前调用
func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return "", fmt.Errorf("%w: comment cannot be empty", ErrInvalidArgument)
	}
	if n > maxCommentLength {
		return "", fmt.Errorf("%w: comment cannot exceed %d characters", ErrInvalidArgument, maxCommentLength)
	}
	return utils.SanitizeText(content), nil
}

// CreateComment 发表评论。parentID 非空时为回复，父评论必须在同一篇博客下。
// 创建成功后把自己加入父评论的 replies，最后重算博客的评论数。
func CreateComment(user *models.User, blogID uint, content string, parentID *uint) (*models.Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	var blog models.Blog
	if err := db.DB.First(&blog, blogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: blog", ErrNotFound)
		}
		return nil, err
	}

	if parentID != nil {
		var parent models.Comment
		if err := db.DB.First(&parent, *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: parent comment", ErrNotFound)
			}
			return nil, err
		}
		if parent.BlogID != blogID {
			return nil, fmt.Errorf("%w: parent comment belongs to another blog", ErrInvalidArgument)
		}
	}

	comment := models.Comment{
		Content:  content,
		AuthorID: user.ID,
		BlogID:   blogID,
		ParentID: parentID,
		Status:   models.CommentStatusActive,
	}
	if err := db.DB.Create(&comment).Error; err != nil {
		return nil, err
	}
	comment.Author = *user

	// 副作用跟在主写入之后：回复图维护失败不回滚评论本身，
	// 只记日志，后续写入会自愈
	if parentID != nil {
		if err := appendReply(*parentID, comment.ID); err != nil {
			log.Printf("Failed to add comment %d to parent %d replies: %v", comment.ID, *parentID, err)
		}
	}
	ReconcileCommentCount(blogID)

	return &comment, nil
}

// EditComment 编辑评论内容，仅作者本人可编辑，会打上 isEdited 标记
func EditComment(user *models.User, commentID uint, content string) (*models.Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var comment models.Comment
		if err := db.DB.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: comment", ErrNotFound)
			}
			return nil, err
		}
		if comment.AuthorID != user.ID {
			return nil, fmt.Errorf("%w: not the comment author", ErrPermissionDenied)
		}

		now := time.Now()
		res := db.DB.Model(&models.Comment{}).
			Where("id = ? AND version = ?", comment.ID, comment.Version).
			Updates(map[string]interface{}{
				"content":   content,
				"is_edited": true,
				"edited_at": now,
				"version":   comment.Version + 1,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			comment.Content = content
			comment.IsEdited = true
			comment.EditedAt = &now
			return &comment, nil
		}
	}
	return nil, ErrConflict
}

// DeleteComment 删除评论及其全部子树。仅作者或管理员可删除。
// 顺序：先从父评论 replies 摘除，再自底向上删除子树，最后重算评论数。
func DeleteComment(user *models.User, commentID uint) error {
	var comment models.Comment
	if err := db.DB.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: comment", ErrNotFound)
		}
		return err
	}
	if comment.AuthorID != user.ID && !user.IsAdmin() {
		return fmt.Errorf("%w: not the comment author", ErrPermissionDenied)
	}

	if comment.ParentID != nil {
		if err := removeReply(*comment.ParentID, comment.ID); err != nil {
			log.Printf("Failed to remove comment %d from parent %d replies: %v", comment.ID, *comment.ParentID, err)
		}
	}
	if err := deleteSubtree(&comment); err != nil {
		return err
	}
	ReconcileCommentCount(comment.BlogID)

	return nil
}

// deleteSubtree 递归删除评论子树，子评论先于父评论删除
func deleteSubtree(c *models.Comment) error {
	var children []models.Comment
	if err := db.DB.Where("parent_id = ?", c.ID).Find(&children).Error; err != nil {
		return err
	}
	for i := range children {
		if err := deleteSubtree(&children[i]); err != nil {
			return err
		}
	}
	return db.DB.Delete(&models.Comment{}, c.ID).Error
}

// ToggleCommentLike 评论点赞开关，返回最新的成员状态和数量
func ToggleCommentLike(user *models.User, commentID uint) (bool, int, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var comment models.Comment
		if err := db.DB.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, 0, fmt.Errorf("%w: comment", ErrNotFound)
			}
			return false, 0, err
		}

		liked := comment.Likes.Contains(user.ID)
		var likes models.UserRefSet
		if liked {
			likes = comment.Likes.Remove(user.ID)
		} else {
			likes = comment.Likes.Add(user.ID)
		}

		res := db.DB.Model(&models.Comment{}).
			Where("id = ? AND version = ?", comment.ID, comment.Version).
			Updates(map[string]interface{}{
				"likes":       likes,
				"likes_count": len(likes),
				"version":     comment.Version + 1,
			})
		if res.Error != nil {
			return false, 0, res.Error
		}
		if res.RowsAffected == 1 {
			return !liked, len(likes), nil
		}
	}
	return false, 0, ErrConflict
}

// FlagComment 举报评论。每个用户对同一条评论只能举报一次，
// 重复举报是客户端错误而不是幂等合并。
func FlagComment(user *models.User, commentID uint, reason string) error {
	if !models.IsValidFlagReason(reason) {
		return fmt.Errorf("%w: unknown flag reason %q", ErrInvalidArgument, reason)
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var comment models.Comment
		if err := db.DB.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: comment", ErrNotFound)
			}
			return err
		}
		// 被压制的评论对用户不可见
		if comment.Status == models.CommentStatusHidden {
			return fmt.Errorf("%w: comment", ErrNotFound)
		}
		if comment.FlaggedBy.Contains(user.ID) {
			return ErrAlreadyFlagged
		}

		flags := append(comment.FlaggedBy, models.Flag{
			UserID:    user.ID,
			Reason:    reason,
			CreatedAt: time.Now(),
		})
		res := db.DB.Model(&models.Comment{}).
			Where("id = ? AND version = ?", comment.ID, comment.Version).
			Updates(map[string]interface{}{
				"status":     models.CommentStatusFlagged,
				"flagged_by": flags,
				"version":    comment.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			// 评论退出 active 状态，活跃数随之变化
			ReconcileCommentCount(comment.BlogID)
			return nil
		}
	}
	return ErrConflict
}

// ModerateComment 管理员审核：active/hidden 会清空举报记录，
// 重新标记 flagged 保留举报记录不变。状态变化会影响活跃评论数，随后重算。
func ModerateComment(admin *models.User, commentID uint, status string) (*models.Comment, error) {
	if !admin.IsAdmin() {
		return nil, fmt.Errorf("%w: admin privileges required", ErrPermissionDenied)
	}
	if !models.IsValidCommentStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var comment models.Comment
		if err := db.DB.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: comment", ErrNotFound)
			}
			return nil, err
		}

		updates := map[string]interface{}{
			"status":  status,
			"version": comment.Version + 1,
		}
		if status != models.CommentStatusFlagged {
			updates["flagged_by"] = models.FlagSet{}
		}

		res := db.DB.Model(&models.Comment{}).
			Where("id = ? AND version = ?", comment.ID, comment.Version).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			comment.Status = status
			if status != models.CommentStatusFlagged {
				comment.FlaggedBy = models.FlagSet{}
			}
			ReconcileCommentCount(comment.BlogID)
			return &comment, nil
		}
	}
	return nil, ErrConflict
}

// ReconcileCommentCount 以活跃评论的实际数量重算博客的 commentsCount。
// 全量重算而不是增减计数，之前的任何偏差都会在下一次写入时被修正。
// 失败只记日志，不让主操作跟着失败。
func ReconcileCommentCount(blogID uint) {
	var count int64
	if err := db.DB.Model(&models.Comment{}).
		Where("blog_id = ? AND status = ?", blogID, models.CommentStatusActive).
		Count(&count).Error; err != nil {
		log.Printf("Failed to count comments for blog %d: %v", blogID, err)
		return
	}
	if err := db.DB.Model(&models.Blog{}).
		Where("id = ?", blogID).
		UpdateColumn("comments_count", count).Error; err != nil {
		log.Printf("Failed to update comments count for blog %d: %v", blogID, err)
	}
}

// appendReply 把子评论 ID 加入父评论的 replies（幂等，重试不产生重复）
func appendReply(parentID, childID uint) error {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var parent models.Comment
		if err := db.DB.First(&parent, parentID).Error; err != nil {
			return err
		}
		if parent.Replies.Contains(childID) {
			return nil
		}

		res := db.DB.Model(&models.Comment{}).
			Where("id = ? AND version = ?", parent.ID, parent.Version).
			Updates(map[string]interface{}{
				"replies": parent.Replies.Add(childID),
				"version": parent.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return ErrConflict
}

// removeReply 从父评论的 replies 中摘除子评论 ID，父评论已不存在时视为成功
func removeReply(parentID, childID uint) error {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var parent models.Comment
		if err := db.DB.First(&parent, parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if !parent.Replies.Contains(childID) {
			return nil
		}

		res := db.DB.Model(&models.Comment{}).
			Where("id = ? AND version = ?", parent.ID, parent.Version).
			Updates(map[string]interface{}{
				"replies": parent.Replies.Remove(childID),
				"version": parent.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return ErrConflict
}

// ListComments 分页查询博客的顶层活跃评论（新的在前），
// 并批量填充每条的直接子评论（旧的在前）。只展开一层。
func ListComments(blogID uint, page, limit int) ([]models.Comment, int64, error) {
	var total int64
	if err := db.DB.Model(&models.Comment{}).
		Where("blog_id = ? AND parent_id IS NULL AND status = ?", blogID, models.CommentStatusActive).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	if err := db.DB.Preload("Author").
		Where("blog_id = ? AND parent_id IS NULL AND status = ?", blogID, models.CommentStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&comments).Error; err != nil {
		return nil, 0, err
	}
	if len(comments) == 0 {
		return comments, total, nil
	}

	// 批量查询本页评论的直接子评论
	parentIDs := make([]uint, len(comments))
	for i, c := range comments {
		parentIDs[i] = c.ID
	}
	var replies []models.Comment
	if err := db.DB.Preload("Author").
		Where("parent_id IN ? AND status = ?", parentIDs, models.CommentStatusActive).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		return nil, 0, err
	}

	byParent := make(map[uint][]models.Comment)
	for _, r := range replies {
		byParent[*r.ParentID] = append(byParent[*r.ParentID], r)
	}
	for i := range comments {
		comments[i].Children = byParent[comments[i].ID]
	}

	return comments, total, nil
}

// FlaggedComments 管理员审核队列：所有待审核评论，最早举报的在前
func FlaggedComments(page, limit int) ([]models.Comment, int64, error) {
	var total int64
	if err := db.DB.Model(&models.Comment{}).
		Where("status = ?", models.CommentStatusFlagged).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	if err := db.DB.Preload("Author").
		Where("status = ?", models.CommentStatusFlagged).
		Order("updated_at ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&comments).Error; err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}
