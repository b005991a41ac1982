package models

import (
	"time"
)

const (
	CommentStatusActive  = "active"  // 默认，可见
	CommentStatusHidden  = "hidden"  // 管理员压制，不可见
	CommentStatusFlagged = "flagged" // 被举报，待审核
)

// IsValidCommentStatus 检查评论状态是否合法
func IsValidCommentStatus(status string) bool {
	switch status {
	case CommentStatusActive, CommentStatusHidden, CommentStatusFlagged:
		return true
	}
	return false
}

// FlagReasons 合法的举报理由
var FlagReasons = []string{"spam", "inappropriate", "harassment", "other"}

// IsValidFlagReason 检查举报理由是否合法
func IsValidFlagReason(reason string) bool {
	for _, r := range FlagReasons {
		if r == reason {
			return true
		}
	}
	return false
}

type Comment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	BlogID   uint   `gorm:"not null;index" json:"blog_id"` // 创建后不可变
	Blog     Blog   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentID *uint  `gorm:"index" json:"parent_id"` // Nullable for top-level comments

	// Replies 保存直接子评论的 ID（set 语义，按插入有序）。
	// 子评论的 ParentID 指回本评论，二者必须一致。
	Replies IDSet `gorm:"type:jsonb;default:'[]'" json:"-"`

	Likes      UserRefSet `gorm:"type:jsonb;default:'[]'" json:"-"`
	LikesCount int        `gorm:"default:0" json:"likes_count"`

	Status    string  `gorm:"size:10;default:'active';index" json:"status"`
	FlaggedBy FlagSet `gorm:"type:jsonb;default:'[]'" json:"-"` // 每个用户至多一条

	IsEdited bool       `gorm:"default:false" json:"is_edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	// 乐观锁版本号
	Version int64 `gorm:"default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 非数据库字段，按请求填充
	IsLiked  bool      `gorm:"-" json:"is_liked"`
	Children []Comment `gorm:"-" json:"replies,omitempty"`
}

// RepliesCount 直接子评论数量
func (c *Comment) RepliesCount() int {
	return len(c.Replies)
}
