package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postloop/autopublisher/internal/domain"
)

const queueColumns = `id, tenant_id, position, topic, format, content_ref,
	       scheduled_at, status, review_reminders, last_reminder_at,
	       created_at, updated_at`

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) Append(ctx context.Context, item *domain.QueueItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := appendTx(ctx, tx, item.TenantID, []*domain.QueueItem{item}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgQueueRepository) AppendBatch(ctx context.Context, tenantID string, items []*domain.QueueItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := appendTx(ctx, tx, tenantID, items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// appendTx assigns consecutive positions starting at max(active)+1 and
// inserts the items, all inside the caller's transaction.
func appendTx(ctx context.Context, tx pgx.Tx, tenantID string, items []*domain.QueueItem) error {
	var maxPos int
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position), 0) FROM content_queue
		WHERE tenant_id = $1 AND status IN ('pending','ready')`, tenantID).Scan(&maxPos)
	if err != nil {
		return fmt.Errorf("max position: %w", err)
	}

	for i, item := range items {
		item.Position = maxPos + i + 1
		if err := insertItemTx(ctx, tx, item); err != nil {
			return err
		}
	}
	return nil
}

func insertItemTx(ctx context.Context, tx pgx.Tx, item *domain.QueueItem) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO content_queue
			(id, tenant_id, position, topic, format, content_ref,
			 scheduled_at, status, review_reminders, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		item.ID, item.TenantID, item.Position, item.Topic, item.Format, item.ContentRef,
		item.ScheduledAt, item.Status, item.ReviewReminders, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) InsertAfter(ctx context.Context, afterPosition int, item *domain.QueueItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		UPDATE content_queue
		SET position = position + 1, updated_at = $3
		WHERE tenant_id = $1 AND position > $2 AND status IN ('pending','ready')`,
		item.TenantID, afterPosition, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("shift positions: %w", err)
	}

	item.Position = afterPosition + 1
	if err := insertItemTx(ctx, tx, item); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgQueueRepository) Delete(ctx context.Context, tenantID, itemID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`DELETE FROM content_queue WHERE tenant_id = $1 AND id = $2`, tenantID, itemID)
	if err != nil {
		return fmt.Errorf("delete queue item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already gone; nothing to renumber.
		return tx.Commit(ctx)
	}

	// Renumber remaining active items to a dense 1..N ordered by their
	// prior position.
	_, err = tx.Exec(ctx, `
		UPDATE content_queue cq
		SET position = ranked.new_position
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY position ASC) AS new_position
			FROM content_queue
			WHERE tenant_id = $1 AND status IN ('pending','ready')
		) ranked
		WHERE cq.id = ranked.id`, tenantID)
	if err != nil {
		return fmt.Errorf("renumber positions: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgQueueRepository) GetByID(ctx context.Context, itemID string) (*domain.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM content_queue WHERE id = $1`, itemID)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

func (r *pgQueueRepository) ListActive(ctx context.Context, tenantID string) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM content_queue
		WHERE tenant_id = $1 AND status IN ('pending','ready')
		ORDER BY position ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *pgQueueRepository) List(ctx context.Context, tenantID string, filter domain.ListFilter) ([]*domain.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM content_queue
		WHERE tenant_id = $1`
	args := []any{tenantID}
	if filter.Status != nil {
		query += ` AND status = $2`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY position ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *pgQueueRepository) CountByStatus(ctx context.Context, tenantID string) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM content_queue
		WHERE tenant_id = $1 GROUP BY status`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var s domain.Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *pgQueueRepository) NextReady(ctx context.Context, tenantID string, now time.Time) (*domain.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM content_queue
		WHERE tenant_id = $1 AND status = 'ready' AND scheduled_at <= $2
		ORDER BY position ASC
		LIMIT 1`, tenantID, now)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *pgQueueRepository) UpdateStatus(ctx context.Context, itemID string, status domain.Status) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE content_queue SET status = $1, updated_at = NOW()
		WHERE id = $2`, status, itemID)
	return err
}

func (r *pgQueueRepository) SetReview(ctx context.Context, itemID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE content_queue
		SET status = 'review', last_reminder_at = $1, updated_at = $1
		WHERE id = $2`, at, itemID)
	return err
}

func (r *pgQueueRepository) IncrementReminder(ctx context.Context, itemID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE content_queue
		SET review_reminders = review_reminders + 1, last_reminder_at = $1, updated_at = $1
		WHERE id = $2`, at, itemID)
	return err
}

func (r *pgQueueRepository) ReviewItems(ctx context.Context, tenantID string) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM content_queue
		WHERE tenant_id = $1 AND status = 'review'`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("review items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *pgQueueRepository) AllReviewItems(ctx context.Context) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM content_queue
		WHERE status = 'review'
		ORDER BY last_reminder_at ASC NULLS FIRST
		LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("all review items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *pgQueueRepository) AssignScheduledAt(ctx context.Context, assignments []ScheduledAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, a := range assignments {
		_, err := tx.Exec(ctx, `
			UPDATE content_queue SET scheduled_at = $1, updated_at = NOW()
			WHERE id = $2`, a.At, a.ItemID)
		if err != nil {
			return fmt.Errorf("assign scheduled_at: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgQueueRepository) ClearActive(ctx context.Context, tenantID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM content_queue
		WHERE tenant_id = $1 AND status IN ('pending','ready')`, tenantID)
	return err
}

// ---- helpers ----

// scanQueueItem reads a single queue row from any pgx row type.
func scanQueueItem(row pgx.Row) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := row.Scan(
		&item.ID, &item.TenantID, &item.Position, &item.Topic, &item.Format,
		&item.ContentRef, &item.ScheduledAt, &item.Status,
		&item.ReviewReminders, &item.LastReminderAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanQueueItems(rows pgx.Rows) ([]*domain.QueueItem, error) {
	var result []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
