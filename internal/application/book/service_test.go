package book

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibook-api/internal/config"
	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	"unibook-api/internal/infrastructure/persistence/postgres"
	apperrors "unibook-api/pkg/errors"
)

// fakeSessions 记录被结束的会话，并以固定步骤模拟会话锁
type fakeSessions struct {
	ids  []string
	step entity.GenerationStep
	held int
}

func (f *fakeSessions) Discard(_ context.Context, bookID string) error {
	f.ids = append(f.ids, bookID)
	return nil
}

func (f *fakeSessions) WithSession(ctx context.Context, _ string, fn func(ctx context.Context, step entity.GenerationStep) error) error {
	f.held++
	step := f.step
	if step == "" {
		step = entity.GenerationStepIdle
	}
	return fn(ctx, step)
}

func newTestService(t *testing.T) (*Service, *fakeSessions) {
	t.Helper()
	client, err := postgres.NewClient(&config.DatabaseConfig{
		Driver:   "sqlite",
		SQLite:   config.SQLiteConfig{Path: ":memory:"},
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, client.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	sessions := &fakeSessions{}
	return NewService(postgres.NewBookRepository(client), sessions), sessions
}

func strPtr(s string) *string { return &s }

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, "u1", CreateInput{Title: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParam))

	_, err = svc.Create(ctx, "u1", CreateInput{Title: "T", Status: "published"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParam))

	created, err := svc.Create(ctx, "u1", CreateInput{
		Title:   "Space Book",
		Outline: []entity.ChapterOutline{{ChapterNumber: 1, Title: "Launch"}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookStatusDraft, created.Status)

	got, err := svc.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Space Book", got.Title)
	require.Len(t, got.Outline, 1)
	assert.Empty(t, got.Chapters)

	_, err = svc.Get(ctx, "u2", created.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = svc.Get(ctx, "u1", "missing")
	assert.True(t, errors.Is(err, apperrors.ErrBookNotFound))
}

func TestUpdatePartial(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Create(ctx, "u1", CreateInput{Title: "Draft", CoverImage: "cover.png"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "u1", created.ID, UpdateInput{Status: strPtr("completed")})
	require.NoError(t, err)
	assert.Equal(t, "Draft", updated.Title)
	assert.Equal(t, "cover.png", updated.CoverImage)
	assert.Equal(t, entity.BookStatusCompleted, updated.Status)

	chapters := []entity.ChapterContent{{ChapterNumber: 1, Title: "A", Content: "c", Reflection: "r"}}
	updated, err = svc.Update(ctx, "u1", created.ID, UpdateInput{Title: strPtr("Final"), Chapters: &chapters})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Len(t, updated.Chapters, 1)

	_, err = svc.Update(ctx, "u1", created.ID, UpdateInput{Status: strPtr("bogus")})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParam))

	_, err = svc.Update(ctx, "u2", created.ID, UpdateInput{Title: strPtr("Stolen")})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestDeleteDiscardsSession(t *testing.T) {
	ctx := context.Background()
	svc, discarder := newTestService(t)

	created, err := svc.Create(ctx, "u1", CreateInput{Title: "Doomed"})
	require.NoError(t, err)

	err = svc.Delete(ctx, "u2", created.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	assert.Empty(t, discarder.ids)

	require.NoError(t, svc.Delete(ctx, "u1", created.ID))
	assert.Equal(t, []string{created.ID}, discarder.ids)

	_, err = svc.Get(ctx, "u1", created.ID)
	assert.True(t, errors.Is(err, apperrors.ErrBookNotFound))
}

func TestAdminListAndDeleteAny(t *testing.T) {
	ctx := context.Background()
	svc, discarder := newTestService(t)

	a, err := svc.Create(ctx, "u1", CreateInput{Title: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", CreateInput{Title: "B"})
	require.NoError(t, err)

	own, err := svc.List(ctx, "u1", repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), own.Total)

	all, err := svc.ListAll(ctx, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	require.NoError(t, svc.DeleteAny(ctx, a.ID))
	assert.Equal(t, []string{a.ID}, discarder.ids)

	err = svc.DeleteAny(ctx, a.ID)
	assert.True(t, errors.Is(err, apperrors.ErrBookNotFound))
}

func TestUpdateLockedDuringGeneration(t *testing.T) {
	ctx := context.Background()
	svc, sessions := newTestService(t)

	outline := []entity.ChapterOutline{{ChapterNumber: 1, Title: "Launch"}}
	created, err := svc.Create(ctx, "u1", CreateInput{Title: "Draft", Outline: outline})
	require.NoError(t, err)

	for _, step := range []entity.GenerationStep{
		entity.GenerationStepGathering,
		entity.GenerationStepPlanning,
		entity.GenerationStepWritingLoop,
	} {
		sessions.step = step
		replaced := []entity.ChapterOutline{{ChapterNumber: 1, Title: "Other"}}
		_, err = svc.Update(ctx, "u1", created.ID, UpdateInput{Outline: &replaced})
		assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition), step)
		_, err = svc.Update(ctx, "u1", created.ID, UpdateInput{Status: strPtr("completed")})
		assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition), step)
	}

	sessions.step = entity.GenerationStepWritingLoop
	updated, err := svc.Update(ctx, "u1", created.ID, UpdateInput{Title: strPtr("Renamed"), CoverImage: strPtr("c.png")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	got, err := svc.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "c.png", got.CoverImage)
	require.Len(t, got.Outline, 1)
	assert.Equal(t, "Launch", got.Outline[0].Title)
	assert.Equal(t, entity.BookStatusDraft, got.Status)

	sessions.step = entity.GenerationStepCompleted
	_, err = svc.Update(ctx, "u1", created.ID, UpdateInput{Status: strPtr("completed")})
	require.NoError(t, err)
	assert.Equal(t, 8, sessions.held)
}
