package ports

import (
	"context"
	"time"

	"github.com/futuretasks/core/internal/domain/entities"
)

// TaskService interface for task collection operations
type TaskService interface {
	Add(ctx context.Context, input TaskInput) (entities.Task, error)
	Get(id int64) (entities.Task, error)
	Update(ctx context.Context, id int64, input TaskInput) (entities.Task, error)
	ToggleCompleted(ctx context.Context, id int64) (entities.Task, error)
	Delete(ctx context.Context, id int64) error
	Reorder(ctx context.Context, id int64, beforeID *int64) error
	Query(q TaskQuery) []entities.Task
	Stats() entities.Stats
	Load(ctx context.Context) []entities.Task
	Save(ctx context.Context) error
	ExportSnapshot() ([]byte, error)
	ImportSnapshot(ctx context.Context, blob []byte) (int, error)
}

// ThemeService interface for the persisted theme preference
type ThemeService interface {
	Get(ctx context.Context) entities.Theme
	Set(ctx context.Context, theme entities.Theme) error
	Toggle(ctx context.Context) (entities.Theme, error)
}

// ReportService interface for rendering task reports
type ReportService interface {
	Render(format string, tasks []entities.Task, stats entities.Stats) (*Report, error)
}

// AuthService interface for the optional single-user token flow
type AuthService interface {
	Enabled() bool
	IssueToken(ctx context.Context, password string) (*TokenResponse, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Request/Response Types

// TaskInput carries the user-editable fields of a task.
type TaskInput struct {
	Text     string            `json:"text" validate:"required,max=500"`
	Priority entities.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category entities.Category `json:"category" validate:"omitempty,max=50"`
	DueDate  *entities.Date    `json:"dueDate"`
}

// TaskQuery is the transient view state a presentation layer filters with.
type TaskQuery struct {
	Filter   entities.FilterMode
	Category string
	Search   string
}

// Report is a rendered export of a task list.
type Report struct {
	Format      string
	ContentType string
	FileName    string
	Body        []byte
}

type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims identify the holder of a valid token.
type Claims struct {
	Subject string
	TokenID string
}
