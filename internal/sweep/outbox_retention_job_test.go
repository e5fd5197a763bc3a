package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/db/dbtest"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	"github.com/rahulbagri/phonelot-backend/pkg/outbox"
)

func seedOutboxEvent(t *testing.T, conn *gorm.DB, createdAt time.Time, publishedAt *time.Time, attempts int) uuid.UUID {
	t.Helper()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventLeadCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		PublishedAt:   publishedAt,
		AttemptCount:  attempts,
	}
	if err := conn.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	if err := conn.Model(&models.OutboxEvent{}).
		Where("id = ?", event.ID).
		Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("backdate event: %v", err)
	}
	return event.ID
}

func TestOutboxRetentionJobPrunesDeliveredRows(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t)
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "sweep-test"}),
		DB:         gormTxRunner{db: conn},
		Repository: outbox.NewRepository(conn),
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	ctx := context.Background()

	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)

	oldPublished := seedOutboxEvent(t, conn, old, &old, 1)
	abandoned := seedOutboxEvent(t, conn, old, nil, 5)
	recentPublished := seedOutboxEvent(t, conn, recent, &recent, 1)
	pending := seedOutboxEvent(t, conn, old, nil, 2)

	if err := job.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	var remaining []models.OutboxEvent
	if err := conn.Find(&remaining).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 surviving events, got %d", len(remaining))
	}
	survivors := map[uuid.UUID]bool{}
	for _, event := range remaining {
		survivors[event.ID] = true
	}
	if !survivors[recentPublished] || !survivors[pending] {
		t.Fatalf("wrong survivors %v", survivors)
	}
	if survivors[oldPublished] || survivors[abandoned] {
		t.Fatalf("stale rows must be pruned")
	}
}
