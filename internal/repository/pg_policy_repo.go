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

const policyColumns = `tenant_id, active, timezone, slots, moderation, on_empty,
	       generate_covers, generating, last_processed_at, created_at, updated_at`

type pgPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewPgPolicyRepository returns a PolicyRepository backed by PostgreSQL.
// The weekly slot set is stored as a JSONB column; pgx marshals the
// []domain.WeeklySlot transparently.
func NewPgPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &pgPolicyRepository{pool: pool}
}

func (r *pgPolicyRepository) Get(ctx context.Context, tenantID string) (*domain.PublishPolicy, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+policyColumns+`
		FROM publish_policies WHERE tenant_id = $1`, tenantID)

	p, err := scanPolicy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

func (r *pgPolicyRepository) Upsert(ctx context.Context, p *domain.PublishPolicy) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO publish_policies
			(tenant_id, active, timezone, slots, moderation, on_empty,
			 generate_covers, generating, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (tenant_id) DO UPDATE SET
			active = EXCLUDED.active,
			timezone = EXCLUDED.timezone,
			slots = EXCLUDED.slots,
			moderation = EXCLUDED.moderation,
			on_empty = EXCLUDED.on_empty,
			generate_covers = EXCLUDED.generate_covers,
			updated_at = EXCLUDED.updated_at`,
		p.TenantID, p.Active, p.Schedule.Timezone, p.Schedule.Slots,
		p.Moderation, p.OnEmpty, p.GenerateCovers, p.Generating,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert policy: %w", err)
	}
	return nil
}

func (r *pgPolicyRepository) ListActive(ctx context.Context) ([]*domain.PublishPolicy, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+policyColumns+`
		FROM publish_policies WHERE active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("list active policies: %w", err)
	}
	defer rows.Close()

	var result []*domain.PublishPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *pgPolicyRepository) SetActive(ctx context.Context, tenantID string, active bool) error {
	return r.setField(ctx, tenantID, "active", active)
}

func (r *pgPolicyRepository) SetModeration(ctx context.Context, tenantID string, m domain.Moderation) error {
	return r.setField(ctx, tenantID, "moderation", m)
}

func (r *pgPolicyRepository) SetOnEmpty(ctx context.Context, tenantID string, o domain.OnEmpty) error {
	return r.setField(ctx, tenantID, "on_empty", o)
}

func (r *pgPolicyRepository) SetGenerateCovers(ctx context.Context, tenantID string, v bool) error {
	return r.setField(ctx, tenantID, "generate_covers", v)
}

func (r *pgPolicyRepository) SetGenerating(ctx context.Context, tenantID string, v bool) error {
	return r.setField(ctx, tenantID, "generating", v)
}

func (r *pgPolicyRepository) TouchProcessed(ctx context.Context, tenantID string, at time.Time) error {
	return r.setField(ctx, tenantID, "last_processed_at", at)
}

// setField updates a single whitelisted column. The column name is always a
// literal from this file, never caller input.
func (r *pgPolicyRepository) setField(ctx context.Context, tenantID, column string, value any) error {
	query := fmt.Sprintf(
		`UPDATE publish_policies SET %s = $1, updated_at = NOW() WHERE tenant_id = $2`, column)
	tag, err := r.pool.Exec(ctx, query, value, tenantID)
	if err != nil {
		return fmt.Errorf("update policy %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPolicy(row pgx.Row) (*domain.PublishPolicy, error) {
	var p domain.PublishPolicy
	err := row.Scan(
		&p.TenantID, &p.Active, &p.Schedule.Timezone, &p.Schedule.Slots,
		&p.Moderation, &p.OnEmpty, &p.GenerateCovers, &p.Generating,
		&p.LastProcessedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
