// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"testing"

	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/query"
	"github.com/ButyrinIA/postboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var authors = []models.Author{
	{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz"},
	{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv"},
}

// Run exercises store against the storage.Storage contract. Subtests share
// the store and reset posts before running.
func Run(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	require.NoError(t, store.UpsertAuthors(ctx, authors), "Ошибка при добавлении авторов")

	reset := func(t *testing.T) {
		_, err := store.DeleteAllPosts(ctx)
		require.NoError(t, err)
	}

	t.Run("CreatePost and GetPost", func(t *testing.T) {
		reset(t)

		post := &models.Post{UserID: 1, Title: "Тестовый пост", Body: "Содержимое тестового поста"}
		require.NoError(t, store.CreatePost(ctx, post), "Ошибка при создании поста")
		assert.NotZero(t, post.ID, "Ожидался присвоенный ID")

		retrieved, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err, "Ошибка при получении поста")
		assert.Equal(t, *post, *retrieved)
	})

	t.Run("GetPost Not Found", func(t *testing.T) {
		reset(t)

		_, err := store.GetPost(ctx, 999999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListPosts and CountPosts", func(t *testing.T) {
		reset(t)

		var ids []int
		for i := 0; i < 5; i++ {
			post := &models.Post{UserID: 1 + i%2, Title: "Пост", Body: "Содержимое поста"}
			require.NoError(t, store.CreatePost(ctx, post))
			ids = append(ids, post.ID)
		}

		page, err := store.ListPosts(ctx, query.Filter{}, 0, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[4], page[0].ID, "Ожидался более новый пост")
		assert.Equal(t, ids[3], page[1].ID)

		page, err = store.ListPosts(ctx, query.Filter{}, 4, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, ids[0], page[0].ID)

		userID := 1
		filtered, err := store.ListPosts(ctx, query.Filter{UserID: &userID}, 0, 10)
		require.NoError(t, err)
		require.Len(t, filtered, 3)
		for i, p := range filtered {
			assert.Equal(t, 1, p.UserID)
			if i > 0 {
				assert.Greater(t, filtered[i-1].ID, p.ID)
			}
		}

		total, err := store.CountPosts(ctx, query.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 5, total)

		count, err := store.CountPosts(ctx, query.Filter{UserID: &userID})
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("UpdatePost", func(t *testing.T) {
		reset(t)

		post := &models.Post{UserID: 2, Title: "Исходный", Body: "Исходное содержимое"}
		require.NoError(t, store.CreatePost(ctx, post))

		update := &models.Post{ID: post.ID, Title: "Обновлённый", Body: "Обновлённое содержимое"}
		require.NoError(t, store.UpdatePost(ctx, update))
		assert.Equal(t, 2, update.UserID, "Автор не должен меняться")

		retrieved, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Обновлённый", retrieved.Title)
		assert.Equal(t, 2, retrieved.UserID)

		err = store.UpdatePost(ctx, &models.Post{ID: 999999, Title: "x", Body: "y"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DeletePost", func(t *testing.T) {
		reset(t)

		post := &models.Post{UserID: 1, Title: "Удаляемый", Body: "Содержимое удаляемого"}
		require.NoError(t, store.CreatePost(ctx, post))

		require.NoError(t, store.DeletePost(ctx, post.ID))
		assert.ErrorIs(t, store.DeletePost(ctx, post.ID), storage.ErrNotFound)
	})

	t.Run("ReplacePosts", func(t *testing.T) {
		reset(t)

		n, err := store.ReplacePosts(ctx, []models.Post{
			{ID: 10, UserID: 1, Title: "Десятый", Body: "Содержимое десятого"},
			{ID: 20, UserID: 2, Title: "Двадцатый", Body: "Содержимое двадцатого"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		post := &models.Post{UserID: 1, Title: "Новый", Body: "Содержимое нового"}
		require.NoError(t, store.CreatePost(ctx, post))
		assert.Greater(t, post.ID, 20, "ID должен продолжаться после засеянных")

		cleared, err := store.DeleteAllPosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, cleared)
	})

	t.Run("Authors", func(t *testing.T) {
		author, err := store.GetAuthor(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Bret", author.Username)

		_, err = store.GetAuthor(ctx, 999999)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		byID, err := store.GetAuthors(ctx, []int{1, 2, 999999})
		require.NoError(t, err)
		assert.Len(t, byID, 2)
		assert.Equal(t, "Antonette", byID[2].Username)

		list, err := store.ListAuthors(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, 1, list[0].ID)
		assert.Equal(t, 2, list[1].ID)
	})
}
