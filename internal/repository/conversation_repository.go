package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
)

// ConversationFilter captures admin listing parameters.
type ConversationFilter struct {
	TenantID    string
	Statuses    []domain.ConversationStatus
	IsStaff     *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ConversationRepository encapsulates conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	GetByTenantPhone(ctx context.Context, tenantID, phone string) (*domain.Conversation, error)
	// UpdateStatus transitions status only when the stored status still equals
	// expected; returns false without error when the guard does not match.
	UpdateStatus(ctx context.Context, id string, expected, next domain.ConversationStatus, escalatedAt *time.Time) (bool, error)
	UpdateContext(ctx context.Context, id string, contextData domain.ConversationContext) error
	SetStaff(ctx context.Context, id string, isStaff bool) error
	FindByLinkedLID(ctx context.Context, tenantID, lid string) (*domain.Conversation, error)
	ListWithFilter(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository instantiates repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

const conversationColumns = `id, tenant_id, customer_phone, is_staff, conversation_type, status, escalated_at, context_data, created_at, updated_at`

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	contextJSON, err := json.Marshal(conv.Context)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO conversations (tenant_id, customer_phone, is_staff, conversation_type, status, escalated_at, context_data)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		conv.TenantID,
		conv.CustomerPhone,
		conv.IsStaff,
		conv.Type,
		conv.Status,
		conv.EscalatedAt,
		contextJSON,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *conversationRepository) GetByTenantPhone(ctx context.Context, tenantID, phone string) (*domain.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE tenant_id=$1 AND customer_phone=$2`
	return r.fetchSingle(ctx, query, tenantID, phone)
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.ConversationStatus, escalatedAt *time.Time) (bool, error) {
	const query = `
        UPDATE conversations SET status=$1, escalated_at=COALESCE($2, escalated_at), updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, next, escalatedAt, id, expected)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *conversationRepository) UpdateContext(ctx context.Context, id string, contextData domain.ConversationContext) error {
	contextJSON, err := json.Marshal(contextData)
	if err != nil {
		return err
	}
	const query = `UPDATE conversations SET context_data=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, contextJSON, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) SetStaff(ctx context.Context, id string, isStaff bool) error {
	const query = `
        UPDATE conversations SET is_staff=$1,
            conversation_type=CASE WHEN $1 THEN 'STAFF' ELSE 'CUSTOMER' END,
            updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, isStaff, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) FindByLinkedLID(ctx context.Context, tenantID, lid string) (*domain.Conversation, error) {
	const query = `
        SELECT ` + conversationColumns + `
        FROM conversations
        WHERE tenant_id=$1 AND context_data->'linked_lids' ? $2
        LIMIT 1`
	return r.fetchSingle(ctx, query, tenantID, lid)
}

func (r *conversationRepository) ListWithFilter(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE tenant_id=$1`
	args := []any{filter.TenantID}

	if len(filter.Statuses) > 0 {
		args = append(args, filter.Statuses)
		query += ` AND status = ANY($2)`
	}
	if filter.IsStaff != nil {
		args = append(args, *filter.IsStaff)
		query += ` AND is_staff = $` + strconv.Itoa(len(args))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY updated_at DESC`
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}

func (r *conversationRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, query, args...))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var (
		conv        domain.Conversation
		contextJSON []byte
	)
	if err := row.Scan(
		&conv.ID,
		&conv.TenantID,
		&conv.CustomerPhone,
		&conv.IsStaff,
		&conv.Type,
		&conv.Status,
		&conv.EscalatedAt,
		&contextJSON,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &conv.Context); err != nil {
			return nil, err
		}
	}
	return &conv, nil
}

