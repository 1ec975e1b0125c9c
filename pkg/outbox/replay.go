package outbox

import (
	"context"
	"fmt"

	"github.com/coltonheil/email-automation/pkg/mq"
)

// ReplayService re-sends outbox entries on operator demand, bypassing the
// dispatcher's retry budget.
type ReplayService struct {
	store     *Store
	publisher *mq.Publisher
}

func NewReplayService(store *Store, publisher *mq.Publisher) *ReplayService {
	return &ReplayService{store: store, publisher: publisher}
}

// Replay publishes one entry immediately, whatever its status.
func (s *ReplayService) Replay(ctx context.Context, id int64) error {
	entry, err := s.store.ByID(ctx, id)
	if err != nil {
		return err
	}

	evCtx := traceContext(ctx, entry.Payload)
	if err := s.publisher.PublishRaw(evCtx, entry.RoutingKey, entry.Payload); err != nil {
		return fmt.Errorf("replay entry %d: %w", id, err)
	}
	return s.store.MarkSent(ctx, id)
}

// ReplayFailed retries every parked entry and reports how many went out.
func (s *ReplayService) ReplayFailed(ctx context.Context, limit int) (int, error) {
	entries, err := s.store.Failed(ctx, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, entry := range entries {
		if err := s.Replay(ctx, entry.ID); err != nil {
			continue
		}
		sent++
	}
	return sent, nil
}
