package postgres

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibook-api/internal/config"
	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	apperrors "unibook-api/pkg/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(&config.DatabaseConfig{
		Driver:   "sqlite",
		SQLite:   config.SQLiteConfig{Path: ":memory:"},
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, client.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	u := entity.NewUser("Reader@Example.com", "Reader")
	require.NoError(t, u.SetPassword("secret123"))
	u.IssueVerificationCode("123456", 5*time.Minute, time.Now())
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByEmail(ctx, "READER@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "123456", got.VerificationCode)
	require.NotNil(t, got.VerificationExpiresAt)
	assert.True(t, got.CheckPassword("secret123"))

	exists, err := repo.ExistsByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.Role = entity.UserRoleAdmin
	require.NoError(t, repo.Update(ctx, got))
	require.NoError(t, repo.UpdateLastLogin(ctx, got.ID))

	reloaded, err := repo.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAdmin())
	assert.NotNil(t, reloaded.LastLoginAt)

	page, err := repo.List(ctx, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Len(t, page.Items, 1)

	require.NoError(t, repo.Delete(ctx, got.ID))
	gone, err := repo.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	require.NoError(t, repo.Create(ctx, entity.NewUser("a@b.c", "")))
	assert.Error(t, repo.Create(ctx, entity.NewUser("a@b.c", "")))
}

func TestBookRepositoryJSONColumns(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository(newTestClient(t))

	b := entity.NewBook("user-1", "Planets")
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Requirements)
	assert.Empty(t, got.Outline)
	assert.Empty(t, got.Chapters)
	assert.Equal(t, entity.BookStatusDraft, got.Status)

	got.Requirements = &entity.BookRequirement{
		Topic: "Space", TargetAudience: "kids", Tone: "fun",
		KeyGoals: []string{"planets"}, PageCountEstimate: 10,
	}
	got.Outline = append(got.Outline, entity.ChapterOutline{ChapterNumber: 1, Title: "Sun", KeyPoints: []string{"hot"}})
	got.Chapters = append(got.Chapters, entity.ChapterContent{ChapterNumber: 1, Title: "Sun", Content: "c", Reflection: "r"})
	got.Status = entity.BookStatusCompleted
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, again.Requirements)
	assert.Equal(t, []string{"planets"}, again.Requirements.KeyGoals)
	require.Len(t, again.Outline, 1)
	assert.Equal(t, []string{"hot"}, again.Outline[0].KeyPoints)
	require.Len(t, again.Chapters, 1)
	assert.Equal(t, "r", again.Chapters[0].Reflection)
	assert.Equal(t, entity.BookStatusCompleted, again.Status)
}

func TestBookRepositoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository(newTestClient(t))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, entity.NewBook("user-1", "mine")))
	}
	other := entity.NewBook("user-2", "theirs")
	require.NoError(t, repo.Create(ctx, other))

	mine, err := repo.ListByUser(ctx, "user-1", repository.NewPagination(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	assert.Len(t, mine.Items, 2)
	assert.Equal(t, 2, mine.TotalPages)

	all, err := repo.List(ctx, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)

	ids, err := repo.DeleteByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	require.NoError(t, repo.Delete(ctx, other.ID))
	all, err = repo.List(ctx, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(0), all.Total)
	assert.NotNil(t, all.Items)
}

func TestTxManagerRollsBack(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	users := NewUserRepository(client)
	books := NewBookRepository(client)
	tx := NewTxManager(client)

	u := entity.NewUser("a@b.c", "")
	require.NoError(t, users.Create(ctx, u))
	require.NoError(t, books.Create(ctx, entity.NewBook(u.ID, "t")))

	boom := stderrors.New("boom")
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := books.DeleteByUser(ctx, u.ID); err != nil {
			return err
		}
		if err := users.Delete(ctx, u.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	still, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
	page, err := books.ListByUser(ctx, u.ID, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestHealthCheck(t *testing.T) {
	assert.NoError(t, newTestClient(t).HealthCheck(context.Background()))
}

func TestBookRepositoryUpdateDoesNotRecreateDeletedBook(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository(newTestClient(t))

	b := entity.NewBook("user-1", "Gone")
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Delete(ctx, b.ID))

	b.Title = "Back"
	err := repo.Update(ctx, b)
	assert.True(t, stderrors.Is(err, apperrors.ErrBookNotFound))
	err = repo.UpdateColumns(ctx, b, "title")
	assert.True(t, stderrors.Is(err, apperrors.ErrBookNotFound))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBookRepositoryUpdateColumns(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository(newTestClient(t))

	b := entity.NewBook("user-1", "Draft")
	require.NoError(t, repo.Create(ctx, b))

	// 另一路写入先保存了章节
	fresh, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	fresh.Chapters = append(fresh.Chapters, entity.ChapterContent{ChapterNumber: 1, Title: "A", Content: "c", Reflection: "r"})
	require.NoError(t, repo.Update(ctx, fresh))

	// 旧副本只改标题
	b.Title = "Renamed"
	require.NoError(t, repo.UpdateColumns(ctx, b, "title", "updated_at"))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, "A", got.Chapters[0].Title)
}
