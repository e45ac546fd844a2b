// Package stream 将 Agent 事件流接入生成服务
package stream

import (
	"context"
	"errors"
	"fmt"

	"unibook-api/internal/domain/entity"
	"unibook-api/internal/infrastructure/messaging"
	apperrors "unibook-api/pkg/errors"
	"unibook-api/pkg/logger"
)

// GenerationService Agent 事件需要的生成服务能力
type GenerationService interface {
	Start(ctx context.Context, bookID string) (entity.GenerationStatus, error)
	SubmitRequirement(ctx context.Context, bookID string, req entity.BookRequirement) (entity.GenerationStatus, error)
	SubmitOutline(ctx context.Context, bookID string, outline []entity.ChapterOutline) (entity.GenerationStatus, error)
	SubmitChapter(ctx context.Context, bookID string, ch entity.ChapterContent) (entity.GenerationStatus, error)
	Reset(ctx context.Context, bookID string) (entity.GenerationStatus, error)
	Log(ctx context.Context, bookID, message string) (entity.GenerationStatus, error)
}

// AgentPayload Agent 事件载荷
type AgentPayload struct {
	BookID      string                  `json:"book_id"`
	Requirement *entity.BookRequirement `json:"requirement,omitempty"`
	Outline     []entity.ChapterOutline `json:"outline,omitempty"`
	Chapter     *entity.ChapterContent  `json:"chapter,omitempty"`
	Message     string                  `json:"message,omitempty"`
	// Conversation 收集需求阶段的对话，仅用于日志
	Conversation []entity.Message `json:"conversation,omitempty"`
}

// AgentHandler Agent 事件处理器
type AgentHandler struct {
	svc GenerationService
}

// NewAgentHandler 创建 Agent 事件处理器
func NewAgentHandler(svc GenerationService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

// Register 注册全部 Agent 事件类型
func (h *AgentHandler) Register(c *messaging.Consumer) {
	c.RegisterHandler(messaging.TypeGenerationStart, h.Handle)
	c.RegisterHandler(messaging.TypeGenerationRequirement, h.Handle)
	c.RegisterHandler(messaging.TypeGenerationOutline, h.Handle)
	c.RegisterHandler(messaging.TypeGenerationChapter, h.Handle)
	c.RegisterHandler(messaging.TypeGenerationReset, h.Handle)
	c.RegisterHandler(messaging.TypeGenerationLog, h.Handle)
}

// Handle 处理单条 Agent 事件
// 状态机拒绝、书籍不存在和载荷错误无法通过重试修复，记录日志后确认；其余错误交给消费者重试
func (h *AgentHandler) Handle(ctx context.Context, msg *messaging.Message) error {
	var p AgentPayload
	if err := msg.UnmarshalPayload(&p); err != nil {
		logger.Warn(ctx, "invalid agent payload", "type", msg.Type, "error", err.Error())
		return nil
	}
	if p.BookID == "" {
		p.BookID = msg.BookID
	}
	if p.BookID == "" {
		logger.Warn(ctx, "agent event without book id", "type", msg.Type)
		return nil
	}
	ctx = logger.WithContext(ctx, logger.BookIDKey, p.BookID)

	status, err := h.dispatch(ctx, msg.Type, &p)
	if err == nil {
		logger.Debug(ctx, "agent event applied", "type", msg.Type, "step", status.Step)
		return nil
	}
	if apperrors.IsGenerationRejection(err) ||
		errors.Is(err, apperrors.ErrBookNotFound) ||
		errors.Is(err, apperrors.ErrInvalidParam) {
		logger.Warn(ctx, "agent event rejected",
			"type", msg.Type,
			"error", err.Error(),
			"step", status.Step,
		)
		return nil
	}
	return err
}

func (h *AgentHandler) dispatch(ctx context.Context, msgType string, p *AgentPayload) (entity.GenerationStatus, error) {
	switch msgType {
	case messaging.TypeGenerationStart:
		return h.svc.Start(ctx, p.BookID)
	case messaging.TypeGenerationRequirement:
		if p.Requirement == nil {
			return entity.GenerationStatus{}, apperrors.ErrInvalidParam.WithDetail("requirement is required")
		}
		if len(p.Conversation) > 0 {
			logger.Debug(ctx, "requirement gathered", "turns", len(p.Conversation))
		}
		return h.svc.SubmitRequirement(ctx, p.BookID, *p.Requirement)
	case messaging.TypeGenerationOutline:
		return h.svc.SubmitOutline(ctx, p.BookID, p.Outline)
	case messaging.TypeGenerationChapter:
		if p.Chapter == nil {
			return entity.GenerationStatus{}, apperrors.ErrInvalidParam.WithDetail("chapter is required")
		}
		return h.svc.SubmitChapter(ctx, p.BookID, *p.Chapter)
	case messaging.TypeGenerationReset:
		return h.svc.Reset(ctx, p.BookID)
	case messaging.TypeGenerationLog:
		return h.svc.Log(ctx, p.BookID, p.Message)
	default:
		return entity.GenerationStatus{}, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown event type %s", msgType))
	}
}
