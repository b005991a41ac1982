package services

import (
	"fmt"
	"strings"
	"testing"

	"inkwell/internal/db"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 每个测试用独立的内存数据库
func setupTestDB(t *testing.T) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库和连接绑定，连接池必须收敛到单连接
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(&models.User{}, &models.Blog{}, &models.Comment{}))
	db.DB = gdb
}

var (
	testUserSeq int
	testBlogSeq int
)

func createTestUser(t *testing.T, role string) *models.User {
	t.Helper()
	testUserSeq++
	user := &models.User{
		Username: fmt.Sprintf("user%d", testUserSeq),
		Email:    fmt.Sprintf("user%d@example.com", testUserSeq),
		Password: "hashed",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.DB.Create(user).Error)
	return user
}

func createTestBlog(t *testing.T, author *models.User) *models.Blog {
	t.Helper()
	testBlogSeq++
	blog := &models.Blog{
		Title:    "Test Blog",
		Slug:     fmt.Sprintf("test-blog-%d", testBlogSeq),
		Excerpt:  "excerpt",
		Content:  "content",
		Category: "development",
		AuthorID: author.ID,
		Status:   models.BlogStatusPublished,
	}
	require.NoError(t, db.DB.Create(blog).Error)
	return blog
}

func blogCommentsCount(t *testing.T, blogID uint) int {
	t.Helper()
	var blog models.Blog
	require.NoError(t, db.DB.First(&blog, blogID).Error)
	return blog.CommentsCount
}

func reloadComment(t *testing.T, id uint) *models.Comment {
	t.Helper()
	var c models.Comment
	require.NoError(t, db.DB.First(&c, id).Error)
	return &c
}

func TestCreateCommentUpdatesCount(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c1, err := CreateComment(user, blog.ID, "first comment", nil)
	require.NoError(t, err)
	assert.Equal(t, models.CommentStatusActive, c1.Status)
	assert.Equal(t, 1, blogCommentsCount(t, blog.ID))

	_, err = CreateComment(user, blog.ID, "second comment", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, blogCommentsCount(t, blog.ID))
}

func TestCreateCommentValidation(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	// 空内容和纯空白都不行
	_, err := CreateComment(user, blog.ID, "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = CreateComment(user, blog.ID, strings.Repeat("a", 1001), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 恰好 1000 字符可以
	_, err = CreateComment(user, blog.ID, strings.Repeat("a", 1000), nil)
	assert.NoError(t, err)

	// 博客不存在
	_, err = CreateComment(user, blog.ID+999, "hello", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplyGraph(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	parent, err := CreateComment(user, blog.ID, "parent", nil)
	require.NoError(t, err)

	reply, err := CreateComment(user, blog.ID, "reply", &parent.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)

	// 父评论的 replies 要包含子评论 ID
	got := reloadComment(t, parent.ID)
	assert.True(t, got.Replies.Contains(reply.ID))
	assert.Equal(t, 1, got.RepliesCount())

	// 回复也计入活跃评论数
	assert.Equal(t, 2, blogCommentsCount(t, blog.ID))

	// 父评论不存在
	missing := parent.ID + 999
	_, err = CreateComment(user, blog.ID, "orphan", &missing)
	assert.ErrorIs(t, err, ErrNotFound)

	// 父评论挂在别的博客下
	other := createTestBlog(t, admin)
	_, err = CreateComment(user, other.ID, "cross blog", &parent.ID)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteCommentCascades(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	root, err := CreateComment(user, blog.ID, "root", nil)
	require.NoError(t, err)
	child, err := CreateComment(user, blog.ID, "child", &root.ID)
	require.NoError(t, err)
	grandchild, err := CreateComment(user, blog.ID, "grandchild", &child.ID)
	require.NoError(t, err)
	sibling, err := CreateComment(user, blog.ID, "sibling", nil)
	require.NoError(t, err)
	require.Equal(t, 4, blogCommentsCount(t, blog.ID))

	// 删除根评论要带走整棵子树
	require.NoError(t, DeleteComment(user, root.ID))

	var count int64
	db.DB.Model(&models.Comment{}).Where("id IN ?", []uint{root.ID, child.ID, grandchild.ID}).Count(&count)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 1, blogCommentsCount(t, blog.ID))

	// 旁系评论不受影响
	assert.NotNil(t, reloadComment(t, sibling.ID))
}

func TestDeleteReplyPrunesParent(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	parent, err := CreateComment(user, blog.ID, "parent", nil)
	require.NoError(t, err)
	reply, err := CreateComment(user, blog.ID, "reply", &parent.ID)
	require.NoError(t, err)

	require.NoError(t, DeleteComment(user, reply.ID))

	got := reloadComment(t, parent.ID)
	assert.False(t, got.Replies.Contains(reply.ID))
	assert.Equal(t, 1, blogCommentsCount(t, blog.ID))
}

func TestDeleteCommentPermissions(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	author := createTestUser(t, models.RoleUser)
	other := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c, err := CreateComment(author, blog.ID, "mine", nil)
	require.NoError(t, err)

	// 非作者非管理员不能删
	assert.ErrorIs(t, DeleteComment(other, c.ID), ErrPermissionDenied)

	// 管理员可以删别人的
	assert.NoError(t, DeleteComment(admin, c.ID))

	assert.ErrorIs(t, DeleteComment(author, c.ID), ErrNotFound)
}

func TestEditComment(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	author := createTestUser(t, models.RoleUser)
	other := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c, err := CreateComment(author, blog.ID, "original", nil)
	require.NoError(t, err)
	assert.False(t, c.IsEdited)

	edited, err := EditComment(author, c.ID, "updated")
	require.NoError(t, err)
	assert.Equal(t, "updated", edited.Content)
	assert.True(t, edited.IsEdited)
	assert.NotNil(t, edited.EditedAt)

	got := reloadComment(t, c.ID)
	assert.Equal(t, "updated", got.Content)
	assert.True(t, got.IsEdited)

	// 别人不能编辑，管理员也不行
	_, err = EditComment(other, c.ID, "hijack")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = EditComment(admin, c.ID, "hijack")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = EditComment(author, c.ID, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestToggleCommentLike(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	other := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c, err := CreateComment(user, blog.ID, "like me", nil)
	require.NoError(t, err)

	liked, count, err := ToggleCommentLike(user, c.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)

	liked, count, err = ToggleCommentLike(other, c.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 2, count)

	// 再点一次取消
	liked, count, err = ToggleCommentLike(user, c.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 1, count)

	got := reloadComment(t, c.ID)
	assert.Equal(t, 1, got.LikesCount)
	assert.False(t, got.Likes.Contains(user.ID))
	assert.True(t, got.Likes.Contains(other.ID))

	_, _, err = ToggleCommentLike(user, c.ID+999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFlagComment(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	author := createTestUser(t, models.RoleUser)
	reporter := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c, err := CreateComment(author, blog.ID, "spammy", nil)
	require.NoError(t, err)
	require.Equal(t, 1, blogCommentsCount(t, blog.ID))

	require.NoError(t, FlagComment(reporter, c.ID, "spam"))

	got := reloadComment(t, c.ID)
	assert.Equal(t, models.CommentStatusFlagged, got.Status)
	assert.True(t, got.FlaggedBy.Contains(reporter.ID))
	assert.Len(t, got.FlaggedBy, 1)
	// 待审核的评论不计入活跃数
	assert.Equal(t, 0, blogCommentsCount(t, blog.ID))

	// 同一用户重复举报
	assert.ErrorIs(t, FlagComment(reporter, c.ID, "harassment"), ErrAlreadyFlagged)

	// 第二个用户可以追加举报
	require.NoError(t, FlagComment(author, c.ID, "other"))
	got = reloadComment(t, c.ID)
	assert.Len(t, got.FlaggedBy, 2)

	assert.ErrorIs(t, FlagComment(reporter, c.ID+999, "spam"), ErrNotFound)
	assert.ErrorIs(t, FlagComment(reporter, c.ID, "nonsense"), ErrInvalidArgument)
}

func TestFlagHiddenComment(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c, err := CreateComment(user, blog.ID, "hide me", nil)
	require.NoError(t, err)
	_, err = ModerateComment(admin, c.ID, models.CommentStatusHidden)
	require.NoError(t, err)

	// 已压制的评论对举报者不可见
	assert.ErrorIs(t, FlagComment(user, c.ID, "spam"), ErrNotFound)
}

func TestModerateComment(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	reporter := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c, err := CreateComment(user, blog.ID, "borderline", nil)
	require.NoError(t, err)
	require.NoError(t, FlagComment(reporter, c.ID, "inappropriate"))

	// 普通用户不能审核
	_, err = ModerateComment(user, c.ID, models.CommentStatusActive)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = ModerateComment(admin, c.ID, "deleted")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 恢复为 active：举报记录清空，重新计入活跃数
	restored, err := ModerateComment(admin, c.ID, models.CommentStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.CommentStatusActive, restored.Status)

	got := reloadComment(t, c.ID)
	assert.Empty(t, got.FlaggedBy)
	assert.Equal(t, 1, blogCommentsCount(t, blog.ID))

	// 清空举报记录后同一用户可以再次举报
	require.NoError(t, FlagComment(reporter, c.ID, "spam"))

	// 压制：同样清空举报记录，不计入活跃数
	hidden, err := ModerateComment(admin, c.ID, models.CommentStatusHidden)
	require.NoError(t, err)
	assert.Equal(t, models.CommentStatusHidden, hidden.Status)
	got = reloadComment(t, c.ID)
	assert.Empty(t, got.FlaggedBy)
	assert.Equal(t, 0, blogCommentsCount(t, blog.ID))

	_, err = ModerateComment(admin, c.ID+999, models.CommentStatusActive)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModerateKeepFlagged(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	reporter := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c, err := CreateComment(user, blog.ID, "keep in queue", nil)
	require.NoError(t, err)
	require.NoError(t, FlagComment(reporter, c.ID, "spam"))

	// 维持 flagged 不清空举报记录
	_, err = ModerateComment(admin, c.ID, models.CommentStatusFlagged)
	require.NoError(t, err)
	got := reloadComment(t, c.ID)
	assert.True(t, got.FlaggedBy.Contains(reporter.ID))
}

func TestReconcileCommentCount(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	_, err := CreateComment(user, blog.ID, "one", nil)
	require.NoError(t, err)
	_, err = CreateComment(user, blog.ID, "two", nil)
	require.NoError(t, err)

	// 人为制造偏差，下一次重算要修正回来
	require.NoError(t, db.DB.Model(&models.Blog{}).Where("id = ?", blog.ID).
		UpdateColumn("comments_count", 42).Error)

	ReconcileCommentCount(blog.ID)
	assert.Equal(t, 2, blogCommentsCount(t, blog.ID))
}

func TestListComments(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	first, err := CreateComment(user, blog.ID, "first", nil)
	require.NoError(t, err)
	second, err := CreateComment(user, blog.ID, "second", nil)
	require.NoError(t, err)
	reply1, err := CreateComment(user, blog.ID, "reply one", &first.ID)
	require.NoError(t, err)
	reply2, err := CreateComment(user, blog.ID, "reply two", &first.ID)
	require.NoError(t, err)

	// 压制一条顶层评论，列表里不该出现
	_, err = ModerateComment(admin, second.ID, models.CommentStatusHidden)
	require.NoError(t, err)

	comments, total, err := ListComments(blog.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, comments, 1)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, user.Username, comments[0].Author.Username)

	// 子评论按时间正序内联，只展开一层
	require.Len(t, comments[0].Children, 2)
	assert.Equal(t, reply1.ID, comments[0].Children[0].ID)
	assert.Equal(t, reply2.ID, comments[0].Children[1].ID)
}

func TestFlaggedComments(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	reporter := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	c1, err := CreateComment(user, blog.ID, "queue one", nil)
	require.NoError(t, err)
	c2, err := CreateComment(user, blog.ID, "queue two", nil)
	require.NoError(t, err)
	require.NoError(t, FlagComment(reporter, c1.ID, "spam"))
	require.NoError(t, FlagComment(reporter, c2.ID, "spam"))

	comments, total, err := FlaggedComments(1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, comments, 2)
	for _, c := range comments {
		assert.Equal(t, models.CommentStatusFlagged, c.Status)
	}
}
