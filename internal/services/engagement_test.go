package services

import (
	"testing"

	"inkwell/internal/db"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleBlogLike(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	alice := createTestUser(t, models.RoleUser)
	bob := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	liked, count, err := ToggleBlogLike(alice, blog.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)

	liked, count, err = ToggleBlogLike(bob, blog.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 2, count)

	// 再点一次取消，另一个用户的点赞不受影响
	liked, count, err = ToggleBlogLike(alice, blog.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 1, count)

	var got models.Blog
	require.NoError(t, db.DB.First(&got, blog.ID).Error)
	assert.Equal(t, 1, got.LikesCount)
	assert.False(t, got.Likes.Contains(alice.ID))
	assert.True(t, got.Likes.Contains(bob.ID))

	_, _, err = ToggleBlogLike(alice, blog.ID+999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleBlogBookmark(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, models.RoleAdmin)
	user := createTestUser(t, models.RoleUser)
	blog := createTestBlog(t, admin)

	marked, count, err := ToggleBlogBookmark(user, blog.ID)
	require.NoError(t, err)
	assert.True(t, marked)
	assert.Equal(t, 1, count)

	marked, count, err = ToggleBlogBookmark(user, blog.ID)
	require.NoError(t, err)
	assert.False(t, marked)
	assert.Equal(t, 0, count)

	// 点赞和收藏互不干扰
	_, _, err = ToggleBlogLike(user, blog.ID)
	require.NoError(t, err)

	var got models.Blog
	require.NoError(t, db.DB.First(&got, blog.ID).Error)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, 0, got.BookmarksCount)
	assert.Empty(t, got.Bookmarks)
}
