package dto

import (
	"unibook-api/internal/domain/entity"
)

// GenerationStatusResponse 生成状态
type GenerationStatusResponse struct {
	Step                string   `json:"step"`
	CurrentChapterIndex int      `json:"currentChapterIndex"`
	TotalChapters       int      `json:"totalChapters"`
	Logs                []string `json:"logs"`
	IsProcessing        bool     `json:"isProcessing"`
}

// ToGenerationStatusResponse 转换生成状态
func ToGenerationStatusResponse(s entity.GenerationStatus) *GenerationStatusResponse {
	logs := s.Logs
	if logs == nil {
		logs = []string{}
	}
	return &GenerationStatusResponse{
		Step:                string(s.Step),
		CurrentChapterIndex: s.CurrentChapterIndex,
		TotalChapters:       s.TotalChapters,
		Logs:                logs,
		IsProcessing:        s.IsProcessing,
	}
}

// SubmitOutlineRequest 提交大纲
type SubmitOutlineRequest struct {
	Outline []entity.ChapterOutline `json:"outline"`
}

// AppendLogRequest 追加进度日志
type AppendLogRequest struct {
	Message string `json:"message" binding:"required"`
}
