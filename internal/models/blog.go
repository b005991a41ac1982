package models

import (
	"time"
)

const (
	BlogStatusDraft     = "draft"
	BlogStatusPublished = "published"
)

// BlogCategories 合法的博客分类
var BlogCategories = []string{"design", "development", "ui-ux", "tutorial", "tips"}

// IsValidCategory 检查分类是否合法
func IsValidCategory(category string) bool {
	for _, c := range BlogCategories {
		if c == category {
			return true
		}
	}
	return false
}

// BlogImage 图床返回的图片引用，只存引用不存图片本身
type BlogImage struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
	AltText  string `json:"alt_text"`
}

type Blog struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	Title    string     `gorm:"size:200;not null" json:"title"`
	Slug     string     `gorm:"uniqueIndex;not null" json:"slug"`
	Excerpt  string     `gorm:"size:300;not null" json:"excerpt"`
	Content  string     `gorm:"type:text;not null" json:"content,omitempty"`
	Category string     `gorm:"size:20;not null;index" json:"category"`
	Tags     StringList `gorm:"type:jsonb;default:'[]'" json:"tags"`
	AuthorID uint       `gorm:"not null;index" json:"author_id"`
	Author   User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Status   string     `gorm:"size:20;default:'draft';index" json:"status"`
	Featured bool       `gorm:"default:false;index" json:"featured"`
	Views    int        `gorm:"default:0" json:"views"`

	FeaturedImage BlogImage `gorm:"embedded;embeddedPrefix:image_" json:"featured_image"`

	// 点赞/收藏集合与缓存的集合大小，二者在同一次写入中一起变更。
	// 集合本身绝不出现在响应里，只返回成员状态和数量。
	Likes          UserRefSet `gorm:"type:jsonb;default:'[]'" json:"-"`
	LikesCount     int        `gorm:"default:0" json:"likes_count"`
	Bookmarks      UserRefSet `gorm:"type:jsonb;default:'[]'" json:"-"`
	BookmarksCount int        `gorm:"default:0" json:"bookmarks_count"`

	// 活跃评论数缓存，由全量重算维护（见 services.ReconcileCommentCount）
	CommentsCount int `gorm:"default:0" json:"comments_count"`

	// 乐观锁版本号，read-modify-write 时做条件更新
	Version int64 `gorm:"default:0" json:"-"`

	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	ContentHTML  string `gorm:"-" json:"content_html,omitempty"`
	IsLiked      bool   `gorm:"-" json:"is_liked"`
	IsBookmarked bool   `gorm:"-" json:"is_bookmarked"`
}
