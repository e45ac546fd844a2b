// Package generation 实现书籍生成流程的状态机与会话编排
package generation

import (
	"fmt"
	"sync"

	"unibook-api/internal/domain/entity"
	apperrors "unibook-api/pkg/errors"
)

// Controller 单本书的生成状态机
//
// 状态流转：IDLE → GATHERING → PLANNING → WRITING_LOOP → COMPLETED，任意状态可 Reset 回 IDLE。
// 非法操作返回错误且状态保持不变；Controller 不做任何 I/O。
type Controller struct {
	mu     sync.Mutex
	status entity.GenerationStatus
}

// NewController 创建处于 IDLE 的控制器
func NewController() *Controller {
	return &Controller{status: entity.NewGenerationStatus()}
}

// RestoreController 从快照恢复控制器
func RestoreController(status entity.GenerationStatus) *Controller {
	c := &Controller{}
	c.Restore(status)
	return c
}

// Status 返回当前状态的副本
func (c *Controller) Status() entity.GenerationStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Clone()
}

// Restore 用快照覆盖当前状态
func (c *Controller) Restore(status entity.GenerationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status.Clone()
	if !c.status.Step.IsValid() {
		c.status.Step = entity.GenerationStepIdle
	}
}

// Start IDLE → GATHERING
func (c *Controller) Start() (entity.GenerationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Step != entity.GenerationStepIdle {
		return c.reject(apperrors.ErrIllegalTransition.WithDetailf("cannot start from %s", c.status.Step))
	}

	c.status.Step = entity.GenerationStepGathering
	c.status.IsProcessing = true
	c.appendLog("Gathering requirements")
	return c.status.Clone(), nil
}

// SubmitRequirement GATHERING → PLANNING
func (c *Controller) SubmitRequirement(req entity.BookRequirement) (entity.GenerationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Step != entity.GenerationStepGathering {
		return c.reject(apperrors.ErrIllegalTransition.WithDetailf("cannot submit requirements in %s", c.status.Step))
	}
	if !req.IsComplete() {
		return c.reject(apperrors.ErrIncompleteRequirement.WithDetail(
			"topic, targetAudience, tone, keyGoals and a positive pageCountEstimate are required"))
	}

	c.status.Step = entity.GenerationStepPlanning
	c.appendLog(fmt.Sprintf("Requirements gathered: %s for %s", req.Topic, req.TargetAudience))
	return c.status.Clone(), nil
}

// SubmitOutline PLANNING → WRITING_LOOP
func (c *Controller) SubmitOutline(outline []entity.ChapterOutline) (entity.GenerationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Step != entity.GenerationStepPlanning {
		return c.reject(apperrors.ErrIllegalTransition.WithDetailf("cannot submit outline in %s", c.status.Step))
	}
	if len(outline) == 0 {
		return c.reject(apperrors.ErrInvalidOutline.WithDetail("outline must contain at least one chapter"))
	}
	for i, ch := range outline {
		if ch.ChapterNumber != i+1 {
			return c.reject(apperrors.ErrInvalidOutline.WithDetailf(
				"outline entry %d has chapterNumber %d, want %d", i, ch.ChapterNumber, i+1))
		}
	}

	c.status.Step = entity.GenerationStepWritingLoop
	c.status.TotalChapters = len(outline)
	c.status.CurrentChapterIndex = 0
	c.appendLog(fmt.Sprintf("Outline planned: %d chapters", len(outline)))
	return c.status.Clone(), nil
}

// SubmitChapter 在 WRITING_LOOP 中接收下一章；写完最后一章时进入 COMPLETED
func (c *Controller) SubmitChapter(ch entity.ChapterContent) (entity.GenerationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Step != entity.GenerationStepWritingLoop {
		return c.reject(apperrors.ErrIllegalTransition.WithDetailf("cannot submit chapter in %s", c.status.Step))
	}
	expected := c.status.CurrentChapterIndex + 1
	if ch.ChapterNumber != expected {
		return c.reject(apperrors.ErrChapterOutOfOrder.WithDetailf(
			"expected chapter %d, got %d", expected, ch.ChapterNumber))
	}
	if !ch.IsComplete() {
		return c.reject(apperrors.ErrIncompleteChapter.WithDetailf(
			"chapter %d needs both content and reflection", ch.ChapterNumber))
	}

	c.status.CurrentChapterIndex++
	c.appendLog(fmt.Sprintf("Chapter %d/%d written: %s", c.status.CurrentChapterIndex, c.status.TotalChapters, ch.Title))

	if c.status.CurrentChapterIndex == c.status.TotalChapters {
		c.status.Step = entity.GenerationStepCompleted
		c.status.IsProcessing = false
		c.appendLog("Book completed")
	}
	return c.status.Clone(), nil
}

// Reset 任意状态 → IDLE，清空日志与进度
func (c *Controller) Reset() entity.GenerationStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = entity.NewGenerationStatus()
	return c.status.Clone()
}

// Log 追加一条进度日志，任何状态下均可调用
func (c *Controller) Log(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLog(message)
}

func (c *Controller) appendLog(message string) {
	c.status.Logs = append(c.status.Logs, message)
}

// reject 返回未变更的状态及错误
func (c *Controller) reject(err *apperrors.AppError) (entity.GenerationStatus, error) {
	return c.status.Clone(), err
}
