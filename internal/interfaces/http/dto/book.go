package dto

import (
	"unibook-api/internal/application/book"
	"unibook-api/internal/domain/entity"
)

// CreateBookRequest 创建书籍请求
type CreateBookRequest struct {
	Title        string                  `json:"title" binding:"required"`
	CoverImage   string                  `json:"coverImage"`
	Requirements *entity.BookRequirement `json:"requirements"`
	Outline      []entity.ChapterOutline `json:"outline"`
	Chapters     []entity.ChapterContent `json:"chapters"`
	Status       string                  `json:"status"`
}

// ToInput 转换为服务层参数
func (r *CreateBookRequest) ToInput() book.CreateInput {
	return book.CreateInput{
		Title:        r.Title,
		CoverImage:   r.CoverImage,
		Requirements: r.Requirements,
		Outline:      r.Outline,
		Chapters:     r.Chapters,
		Status:       r.Status,
	}
}

// UpdateBookRequest 部分更新请求，未出现的字段保持不变
type UpdateBookRequest struct {
	Title        *string                  `json:"title"`
	CoverImage   *string                  `json:"coverImage"`
	Requirements *entity.BookRequirement  `json:"requirements"`
	Outline      *[]entity.ChapterOutline `json:"outline"`
	Chapters     *[]entity.ChapterContent `json:"chapters"`
	Status       *string                  `json:"status"`
}

// ToInput 转换为服务层参数
func (r *UpdateBookRequest) ToInput() book.UpdateInput {
	return book.UpdateInput{
		Title:        r.Title,
		CoverImage:   r.CoverImage,
		Requirements: r.Requirements,
		Outline:      r.Outline,
		Chapters:     r.Chapters,
		Status:       r.Status,
	}
}

// BookResponse 书籍响应，createdAt 为毫秒时间戳
type BookResponse struct {
	ID           string                  `json:"id"`
	UserID       string                  `json:"userId,omitempty"`
	Title        string                  `json:"title"`
	CoverImage   string                  `json:"coverImage,omitempty"`
	Requirements *entity.BookRequirement `json:"requirements,omitempty"`
	Outline      []entity.ChapterOutline `json:"outline"`
	Chapters     []entity.ChapterContent `json:"chapters"`
	CreatedAt    int64                   `json:"createdAt"`
	Status       string                  `json:"status"`
}

// ToBookResponse 转换书籍实体
func ToBookResponse(b *entity.Book) *BookResponse {
	if b == nil {
		return nil
	}
	outline := []entity.ChapterOutline(b.Outline)
	if outline == nil {
		outline = []entity.ChapterOutline{}
	}
	chapters := []entity.ChapterContent(b.Chapters)
	if chapters == nil {
		chapters = []entity.ChapterContent{}
	}
	return &BookResponse{
		ID:           b.ID,
		UserID:       b.UserID,
		Title:        b.Title,
		CoverImage:   b.CoverImage,
		Requirements: b.Requirements,
		Outline:      outline,
		Chapters:     chapters,
		CreatedAt:    b.CreatedAtMillis(),
		Status:       string(b.Status),
	}
}

// ToBookListResponse 转换书籍列表
func ToBookListResponse(books []*entity.Book) []*BookResponse {
	out := make([]*BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, ToBookResponse(b))
	}
	return out
}
