package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/order/domain"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	query := `INSERT INTO orders (id, owner_id, items, total, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.OwnerID,
		itemsJSON,
		order.Total,
		order.Status)

	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

const orderColumns = `o.id, o.owner_id, o.items, o.total, o.status, o.created_at, o.updated_at,
	          o.decided_at, o.decided_by, o.rejection_note,
	          r.id, r.uploaded_by, r.storage_path, r.content_type, r.uploaded_at`

const orderFrom = ` FROM orders o LEFT JOIN receipts r ON r.order_id = o.id`

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE o.id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE o.owner_id = $1 ORDER BY o.created_at DESC`
	return r.queryOrders(ctx, query, ownerID)
}

func (r *Repository) ListOrders(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	if status == "" {
		query := `SELECT ` + orderColumns + orderFrom + ` ORDER BY o.created_at DESC`
		return r.queryOrders(ctx, query)
	}
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE o.status = $1 ORDER BY o.created_at DESC`
	return r.queryOrders(ctx, query, status)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order          domain.Order
		itemsJSON      []byte
		decidedBy      sql.NullString
		rejectionNote  sql.NullString
		receiptID      sql.NullString
		receiptBy      sql.NullString
		receiptPath    sql.NullString
		receiptType    sql.NullString
		receiptUploads sql.NullTime
	)

	if err := row.Scan(
		&order.ID,
		&order.OwnerID,
		&itemsJSON,
		&order.Total,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.DecidedAt,
		&decidedBy,
		&rejectionNote,
		&receiptID,
		&receiptBy,
		&receiptPath,
		&receiptType,
		&receiptUploads,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}

	order.DecidedBy = decidedBy.String
	order.RejectionNote = rejectionNote.String

	if receiptID.Valid {
		id, err := uuid.Parse(receiptID.String)
		if err != nil {
			return nil, fmt.Errorf("parse receipt id: %w", err)
		}
		order.Receipt = &domain.Receipt{
			ID:          id,
			OrderID:     order.ID,
			UploadedBy:  receiptBy.String,
			StoragePath: receiptPath.String,
			ContentType: receiptType.String,
			UploadedAt:  receiptUploads.Time,
		}
	}

	return &order, nil
}

// AttachReceipt moves the order AWAITING_RECEIPT -> PENDING_VERIFICATION and
// inserts the receipt row in one transaction. The UPDATE carries the
// expected source status, so a re-upload or a race loses cleanly with
// ErrTransitionConflict and the transaction never half-applies.
func (r *Repository) AttachReceipt(ctx context.Context, receipt *domain.Receipt) error {
	return storage.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
			domain.OrderStatusPendingVerification,
			receipt.OrderID,
			domain.OrderStatusAwaitingReceipt,
		)
		if err != nil {
			return fmt.Errorf("transition order status: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return r.conflictOrNotFound(ctx, tx, receipt.OrderID)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO receipts (id, order_id, uploaded_by, storage_path, content_type, uploaded_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())`,
			receipt.ID,
			receipt.OrderID,
			receipt.UploadedBy,
			receipt.StoragePath,
			receipt.ContentType,
		)
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
		return nil
	})
}

// DecideOrder applies the admin decision with the same compare-and-set
// shape: only the first decide to observe PENDING_VERIFICATION commits,
// every later one gets ErrTransitionConflict. The outbox event, when
// present, commits atomically with the status change.
func (r *Repository) DecideOrder(ctx context.Context, orderID uuid.UUID, decision Decision) error {
	return storage.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, decided_at = NOW(), decided_by = $2, rejection_note = $3, updated_at = NOW()
			 WHERE id = $4 AND status = $5`,
			decision.Status,
			decision.DecidedBy,
			decision.RejectionNote,
			orderID,
			domain.OrderStatusPendingVerification,
		)
		if err != nil {
			return fmt.Errorf("transition order status: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return r.conflictOrNotFound(ctx, tx, orderID)
		}

		if decision.EventPayload != nil {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_events (aggregate_id, event_type, payload, created_at)
				 VALUES ($1, $2, $3, NOW())`,
				orderID,
				decision.EventType,
				decision.EventPayload,
			)
			if err != nil {
				return fmt.Errorf("insert outbox event: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) conflictOrNotFound(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) error {
	var current domain.OrderStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("query current status: %w", err)
	}
	return fmt.Errorf("current status %s: %w", current, ErrTransitionConflict)
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM order_events WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE order_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

// OrderStats fills the order-derived numbers; user and product counts are
// composed by the service from their own repositories.
func (r *Repository) OrderStats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total) FILTER (WHERE status = $1), 0),
		       COUNT(*) FILTER (WHERE status = $2)
		FROM orders`,
		domain.OrderStatusCompleted,
		domain.OrderStatusPendingVerification,
	).Scan(&stats.TotalOrders, &stats.TotalRevenue, &stats.PendingVerification)
	if err != nil {
		return nil, fmt.Errorf("query order stats: %w", err)
	}
	return &stats, nil
}
