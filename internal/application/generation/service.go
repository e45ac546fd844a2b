package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	apperrors "unibook-api/pkg/errors"
	"unibook-api/pkg/logger"
	"unibook-api/pkg/metrics"
	"unibook-api/pkg/tracer"
)

// 操作名称，用于事件与指标
const (
	OpStart       = "start"
	OpRequirement = "requirement"
	OpOutline     = "outline"
	OpChapter     = "chapter"
	OpReset       = "reset"
	OpLog         = "log"
)

// session 单本书的生成会话
// refs 由 Service.mu 保护；引用归零前会话不会从表中移除，
// 保证同一本书任意时刻只有一个控制器
type session struct {
	mu   sync.Mutex
	ctrl *Controller
	refs int
}

// Service 生成会话编排服务
// 每本书至多一个会话；同一会话上的操作串行执行
type Service struct {
	books  repository.BookRepository
	store  StatusStore
	events EventPublisher

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// NewService 创建生成服务；events 可为 nil
func NewService(books repository.BookRepository, store StatusStore, events EventPublisher) *Service {
	return &Service{
		books:    books,
		store:    store,
		events:   events,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Status 返回书籍当前生成状态，不存在会话时读取快照或返回 IDLE
func (s *Service) Status(ctx context.Context, bookID string) (entity.GenerationStatus, error) {
	sess := s.acquire(bookID)
	defer s.release(bookID, sess)
	return s.currentStatus(ctx, sess, bookID)
}

// WithSession 在会话锁内执行 fn，期间该书的生成操作不会并发推进
func (s *Service) WithSession(ctx context.Context, bookID string, fn func(ctx context.Context, step entity.GenerationStep) error) error {
	sess := s.acquire(bookID)
	defer s.release(bookID, sess)

	status, err := s.currentStatus(ctx, sess, bookID)
	if err != nil {
		return err
	}
	return fn(ctx, status.Step)
}

// currentStatus 调用方须持有 sess.mu
func (s *Service) currentStatus(ctx context.Context, sess *session, bookID string) (entity.GenerationStatus, error) {
	if sess.ctrl != nil {
		return sess.ctrl.Status(), nil
	}
	snap, err := s.store.Load(ctx, bookID)
	if err != nil {
		return entity.GenerationStatus{}, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load generation status")
	}
	if snap == nil {
		return entity.NewGenerationStatus(), nil
	}
	return *snap, nil
}

// Start 开始收集需求
func (s *Service) Start(ctx context.Context, bookID string) (entity.GenerationStatus, error) {
	return s.apply(ctx, bookID, OpStart, func(c *Controller, _ *entity.Book) (entity.GenerationStatus, bool, error) {
		st, err := c.Start()
		return st, false, err
	})
}

// SubmitRequirement 提交需求并写入书籍
func (s *Service) SubmitRequirement(ctx context.Context, bookID string, req entity.BookRequirement) (entity.GenerationStatus, error) {
	return s.apply(ctx, bookID, OpRequirement, func(c *Controller, book *entity.Book) (entity.GenerationStatus, bool, error) {
		st, err := c.SubmitRequirement(req)
		if err != nil {
			return st, false, err
		}
		r := req
		r.KeyGoals = append([]string(nil), req.KeyGoals...)
		book.Requirements = &r
		if strings.TrimSpace(book.Title) == "" {
			book.Title = req.Topic
		}
		return st, true, nil
	})
}

// SubmitOutline 提交大纲并写入书籍，已有章节被清空，书籍回到 draft
func (s *Service) SubmitOutline(ctx context.Context, bookID string, outline []entity.ChapterOutline) (entity.GenerationStatus, error) {
	return s.apply(ctx, bookID, OpOutline, func(c *Controller, book *entity.Book) (entity.GenerationStatus, bool, error) {
		st, err := c.SubmitOutline(outline)
		if err != nil {
			return st, false, err
		}
		book.Outline = append(datatypes.JSONSlice[entity.ChapterOutline]{}, outline...)
		book.Chapters = datatypes.JSONSlice[entity.ChapterContent]{}
		book.Status = entity.BookStatusDraft
		return st, true, nil
	})
}

// SubmitChapter 提交章节并追加到书籍，最后一章写完后书籍标记为 completed
func (s *Service) SubmitChapter(ctx context.Context, bookID string, ch entity.ChapterContent) (entity.GenerationStatus, error) {
	return s.apply(ctx, bookID, OpChapter, func(c *Controller, book *entity.Book) (entity.GenerationStatus, bool, error) {
		st, err := c.SubmitChapter(ch)
		if err != nil {
			return st, false, err
		}
		chapters := make([]entity.ChapterContent, 0, len(book.Chapters)+1)
		chapters = append(chapters, book.Chapters...)
		book.Chapters = append(chapters, ch)
		if st.Step == entity.GenerationStepCompleted {
			book.Status = entity.BookStatusCompleted
		}
		return st, true, nil
	})
}

// Reset 重置会话，不修改书籍内容
func (s *Service) Reset(ctx context.Context, bookID string) (entity.GenerationStatus, error) {
	return s.apply(ctx, bookID, OpReset, func(c *Controller, _ *entity.Book) (entity.GenerationStatus, bool, error) {
		return c.Reset(), false, nil
	})
}

// Log 追加进度日志
func (s *Service) Log(ctx context.Context, bookID, message string) (entity.GenerationStatus, error) {
	return s.apply(ctx, bookID, OpLog, func(c *Controller, _ *entity.Book) (entity.GenerationStatus, bool, error) {
		c.Log(message)
		return c.Status(), false, nil
	})
}

// Discard 结束会话并删除快照（书籍删除时调用）
// 等待进行中的操作结束后再清理，之后排队的操作会因书籍不存在而失败
func (s *Service) Discard(ctx context.Context, bookID string) error {
	sess := s.acquire(bookID)
	defer s.release(bookID, sess)

	sess.ctrl = nil
	if err := s.store.Delete(ctx, bookID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to delete generation status")
	}
	return nil
}

// ActiveSessions 当前内存中的会话数
func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type transition func(c *Controller, book *entity.Book) (entity.GenerationStatus, bool, error)

// apply 在会话锁内执行一次状态迁移并持久化
// 持久化失败时控制器回滚到迁移前的快照
func (s *Service) apply(ctx context.Context, bookID, op string, fn transition) (entity.GenerationStatus, error) {
	ctx, span := tracer.Start(ctx, "generation.Service."+op)
	defer span.End()
	ctx = logger.WithContext(ctx, logger.BookIDKey, bookID)

	sess := s.acquire(bookID)
	defer s.release(bookID, sess)

	// 在锁内读取书籍，迁移总是基于上一次提交后的内容
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		span.RecordError(err)
		return entity.GenerationStatus{}, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load book")
	}
	if book == nil {
		return entity.GenerationStatus{}, apperrors.ErrBookNotFound
	}

	if sess.ctrl == nil {
		ctrl, err := s.loadController(ctx, bookID)
		if err != nil {
			span.RecordError(err)
			return entity.GenerationStatus{}, err
		}
		sess.ctrl = ctrl
	}

	snapshot := sess.ctrl.Status()
	original := *book

	status, bookChanged, err := fn(sess.ctrl, book)
	if err != nil {
		metrics.GenerationTransitionsTotal.WithLabelValues(op, "rejected").Inc()
		logger.Warn(ctx, "generation transition rejected", "operation", op, "step", snapshot.Step, "error", err.Error())
		return status, err
	}

	if err := s.persist(ctx, bookID, book, &original, bookChanged, status); err != nil {
		sess.ctrl.Restore(snapshot)
		span.RecordError(err)
		metrics.GenerationTransitionsTotal.WithLabelValues(op, "error").Inc()
		logger.Error(ctx, "failed to persist generation transition", err, "operation", op)
		return snapshot, err
	}

	metrics.GenerationTransitionsTotal.WithLabelValues(op, "ok").Inc()
	if op == OpChapter {
		metrics.GenerationChaptersWritten.Inc()
	}
	logger.Info(ctx, "generation transition applied", "operation", op, "step", status.Step,
		"chapter", status.CurrentChapterIndex, "total", status.TotalChapters)

	if op != OpLog {
		s.publish(ctx, bookID, op, status)
	}
	if status.Step == entity.GenerationStepCompleted && op == OpChapter {
		metrics.GenerationBooksCompleted.Inc()
	}
	return status, nil
}

// persist 写书籍再写快照；快照写入失败时尽量恢复书籍
func (s *Service) persist(ctx context.Context, bookID string, book, original *entity.Book, bookChanged bool, status entity.GenerationStatus) error {
	if bookChanged {
		book.UpdatedAt = s.now()
		if err := s.books.Update(ctx, book); err != nil {
			if errors.Is(err, apperrors.ErrBookNotFound) {
				return apperrors.ErrBookNotFound
			}
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update book")
		}
	}
	if err := s.store.Save(ctx, bookID, status); err != nil {
		if bookChanged {
			if rbErr := s.books.Update(ctx, original); rbErr != nil {
				logger.Error(ctx, "failed to restore book after status save failure", rbErr)
			}
		}
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save generation status")
	}
	return nil
}

func (s *Service) loadController(ctx context.Context, bookID string) (*Controller, error) {
	snap, err := s.store.Load(ctx, bookID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load generation status")
	}
	if snap == nil {
		return NewController(), nil
	}
	logger.Debug(ctx, "generation session restored", "step", snap.Step)
	return RestoreController(*snap), nil
}

func (s *Service) publish(ctx context.Context, bookID, op string, status entity.GenerationStatus) {
	if s.events == nil {
		return
	}
	event := StepEvent{
		BookID:     bookID,
		Operation:  op,
		Status:     status,
		OccurredAt: s.now(),
	}
	if err := s.events.PublishStep(ctx, event); err != nil {
		logger.Error(ctx, "failed to publish generation step event", err, "operation", op)
	}
}

// acquire 取得会话并加锁，须与 release 成对调用
func (s *Service) acquire(bookID string) *session {
	s.mu.Lock()
	sess, ok := s.sessions[bookID]
	if !ok {
		sess = &session{}
		s.sessions[bookID] = sess
		metrics.GenerationActiveSessions.Set(float64(len(s.sessions)))
	}
	sess.refs++
	s.mu.Unlock()

	sess.mu.Lock()
	return sess
}

// release 解锁会话；无人引用且没有进行中的生成时从表中移除，
// 之后的操作从快照重建控制器
func (s *Service) release(bookID string, sess *session) {
	idle := sess.ctrl == nil || !sess.ctrl.Status().Step.IsActive()

	s.mu.Lock()
	sess.refs--
	if sess.refs == 0 && idle {
		delete(s.sessions, bookID)
		metrics.GenerationActiveSessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()

	sess.mu.Unlock()
}
