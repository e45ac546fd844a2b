package entity

// GenerationStep 生成流程步骤
type GenerationStep string

const (
	GenerationStepIdle        GenerationStep = "IDLE"
	GenerationStepGathering   GenerationStep = "GATHERING"
	GenerationStepPlanning    GenerationStep = "PLANNING"
	GenerationStepWritingLoop GenerationStep = "WRITING_LOOP"
	GenerationStepCompleted   GenerationStep = "COMPLETED"
)

// IsValid 检查步骤是否属于已知集合
func (s GenerationStep) IsValid() bool {
	switch s {
	case GenerationStepIdle, GenerationStepGathering, GenerationStepPlanning,
		GenerationStepWritingLoop, GenerationStepCompleted:
		return true
	default:
		return false
	}
}

// IsActive 生成是否进行中（已开始且未完成）
func (s GenerationStep) IsActive() bool {
	switch s {
	case GenerationStepGathering, GenerationStepPlanning, GenerationStepWritingLoop:
		return true
	default:
		return false
	}
}

// GenerationStatus 单本书的生成进度
type GenerationStatus struct {
	Step                GenerationStep `json:"step"`
	CurrentChapterIndex int            `json:"currentChapterIndex"`
	TotalChapters       int            `json:"totalChapters"`
	Logs                []string       `json:"logs"`
	IsProcessing        bool           `json:"isProcessing"`
}

// NewGenerationStatus 创建 IDLE 状态
func NewGenerationStatus() GenerationStatus {
	return GenerationStatus{
		Step: GenerationStepIdle,
		Logs: []string{},
	}
}

// Clone 深拷贝，日志切片不与原值共享
func (s GenerationStatus) Clone() GenerationStatus {
	cp := s
	cp.Logs = make([]string, len(s.Logs))
	copy(cp.Logs, s.Logs)
	return cp
}

// Message Gatherer 对话中的一轮
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// 对话角色
const (
	MessageRoleUser  = "user"
	MessageRoleModel = "model"
)
