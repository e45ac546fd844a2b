package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BookStatus 书籍状态
type BookStatus string

const (
	BookStatusDraft     BookStatus = "draft"
	BookStatusCompleted BookStatus = "completed"
)

// IsValid 检查状态是否合法
func (s BookStatus) IsValid() bool {
	return s == BookStatusDraft || s == BookStatusCompleted
}

// BookRequirement 书籍需求，在 GATHERING 阶段一次性确定
type BookRequirement struct {
	Topic             string   `json:"topic"`
	TargetAudience    string   `json:"targetAudience"`
	Tone              string   `json:"tone"`
	KeyGoals          []string `json:"keyGoals"`
	PageCountEstimate int      `json:"pageCountEstimate"`
}

// IsComplete 所有字段均已填写
func (r *BookRequirement) IsComplete() bool {
	if r == nil {
		return false
	}
	return strings.TrimSpace(r.Topic) != "" &&
		strings.TrimSpace(r.TargetAudience) != "" &&
		strings.TrimSpace(r.Tone) != "" &&
		len(r.KeyGoals) > 0 &&
		r.PageCountEstimate > 0
}

// ChapterOutline 章节大纲
type ChapterOutline struct {
	ChapterNumber int      `json:"chapterNumber"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	KeyPoints     []string `json:"keyPoints"`
}

// ChapterContent 章节正文及反思
type ChapterContent struct {
	ChapterNumber int    `json:"chapterNumber"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Reflection    string `json:"reflection"`
}

// IsComplete 正文与反思均非空
func (c ChapterContent) IsComplete() bool {
	return strings.TrimSpace(c.Content) != "" && strings.TrimSpace(c.Reflection) != ""
}

// Book 书籍实体
type Book struct {
	ID           string                              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string                              `json:"userId" gorm:"type:varchar(36);index;not null"`
	Title        string                              `json:"title" gorm:"type:varchar(512);not null"`
	CoverImage   string                              `json:"coverImage,omitempty" gorm:"type:text"`
	Requirements *BookRequirement                    `json:"requirements,omitempty" gorm:"serializer:json;type:text"`
	Outline      datatypes.JSONSlice[ChapterOutline] `json:"outline" gorm:"type:text"`
	Chapters     datatypes.JSONSlice[ChapterContent] `json:"chapters" gorm:"type:text"`
	Status       BookStatus                          `json:"status" gorm:"type:varchar(16);not null;default:draft"`
	CreatedAt    time.Time                           `json:"createdAt"`
	UpdatedAt    time.Time                           `json:"updatedAt"`
}

// NewBook 创建草稿书籍
func NewBook(userID, title string) *Book {
	now := time.Now()
	return &Book{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Outline:   datatypes.JSONSlice[ChapterOutline]{},
		Chapters:  datatypes.JSONSlice[ChapterContent]{},
		Status:    BookStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOwnedBy 检查书籍归属
func (b *Book) IsOwnedBy(userID string) bool {
	return b.UserID == userID
}

// CreatedAtMillis 以毫秒时间戳返回创建时间
func (b *Book) CreatedAtMillis() int64 {
	return b.CreatedAt.UnixMilli()
}
