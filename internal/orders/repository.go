package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, order Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
}

// PostgresRepository stores orders in PostgreSQL with items as JSONB.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an order.
func (r *PostgresRepository) Create(ctx context.Context, order Order) error {
	orderID, err := uuid.Parse(order.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(order.UserID)
	if err != nil {
		return err
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO orders (id, user_id, items, total_price, created_at)
        VALUES ($1, $2, $3, $4, $5)`, orderID, userID, items, order.TotalPrice, order.CreatedAt.UTC())
	return err
}

// ListByUser returns the user's orders, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return []Order{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, items, total_price, created_at
        FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// List returns every order, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Order, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, items, total_price, created_at
        FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		var (
			o         Order
			id        uuid.UUID
			userID    uuid.UUID
			items     []byte
			createdAt time.Time
		)
		if err := rows.Scan(&id, &userID, &items, &o.TotalPrice, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		o.ID = id.String()
		o.UserID = userID.String()
		o.CreatedAt = createdAt.UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}
