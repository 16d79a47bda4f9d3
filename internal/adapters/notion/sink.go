package notion

import (
	"context"
	"errors"

	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// TaskSink adapts Client to domain.TaskService. The per-user credential is
// the id of the user's task database.
type TaskSink struct {
	client *Client
}

func NewTaskSink(c *Client) *TaskSink {
	return &TaskSink{client: c}
}

// CreateTask succeeds only when Notion answers with a page id.
func (s *TaskSink) CreateTask(ctx context.Context, databaseID string, t domain.Task) error {
	page, err := s.client.AddTask(ctx, databaseID, t.Title, t.Due.Value())
	if err != nil {
		return err
	}
	if page == nil || page.ID == "" {
		return errors.New("notion did not return a page id")
	}
	observability.LoggerFromContext(ctx).Infow("notion page created", "page_id", page.ID)
	return nil
}

func (s *TaskSink) ValidateCredential(ctx context.Context, databaseID string) (bool, error) {
	return s.client.ValidateCredential(ctx, databaseID)
}
