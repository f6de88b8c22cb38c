package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresRepository persists orders and payments so they survive
// process restarts.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "fulfillment_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const orderColumns = `number, customer_ref, items, subtotal, tax, shipping, discount, total,
	status, shipping_method, payment_method, tracking_number, invoice_relay_state,
	created_at, updated_at, shipped_at, delivered_at`

func (r *PostgresRepository) CreateOrder(ctx context.Context, o *Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, insertErr := r.db.ExecContext(ctx, query,
		o.Number,
		o.CustomerRef,
		itemsJSON,
		o.Subtotal,
		o.Tax,
		o.Shipping,
		o.Discount,
		o.Total,
		o.Status,
		o.ShippingMethod,
		o.PaymentMethod,
		o.TrackingNumber,
		o.InvoiceRelayState,
		o.CreatedAt,
		o.UpdatedAt,
		o.ShippedAt,
		o.DeliveredAt)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *PostgresRepository) GetOrder(ctx context.Context, number string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by number: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, o *Order) error {
	query := `UPDATE orders
	          SET status = $2, tracking_number = $3, shipped_at = $4, delivered_at = $5, updated_at = $6
	          WHERE number = $1`

	res, err := r.db.ExecContext(ctx, query,
		o.Number, o.Status, o.TrackingNumber, o.ShippedAt, o.DeliveredAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) SetInvoiceRelayState(ctx context.Context, number string, state RelayState) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET invoice_relay_state = $2 WHERE number = $1`, number, state)
	if err != nil {
		return fmt.Errorf("update invoice relay state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByRelayState(ctx context.Context, state RelayState) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE invoice_relay_state = $1 ORDER BY created_at DESC`
	return r.listOrders(ctx, query, state)
}

func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerRef string) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_ref = $1 ORDER BY created_at DESC`
	return r.listOrders(ctx, query, customerRef)
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at DESC`
	return r.listOrders(ctx, query, status)
}

func (r *PostgresRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at DESC`
	return r.listOrders(ctx, query, from, to)
}

func (r *PostgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var itemsJSON []byte
	err := row.Scan(
		&o.Number,
		&o.CustomerRef,
		&itemsJSON,
		&o.Subtotal,
		&o.Tax,
		&o.Shipping,
		&o.Discount,
		&o.Total,
		&o.Status,
		&o.ShippingMethod,
		&o.PaymentMethod,
		&o.TrackingNumber,
		&o.InvoiceRelayState,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.ShippedAt,
		&o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) CreatePayment(ctx context.Context, p *Payment) error {
	query := `INSERT INTO payments (order_number, amount, method, status, transaction_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		p.OrderNumber, p.Amount, p.Method, p.Status, p.TransactionID, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetPayment(ctx context.Context, orderNumber string) (*Payment, error) {
	query := `SELECT order_number, amount, method, status, transaction_id, created_at
	          FROM payments WHERE order_number = $1`

	var p Payment
	err := r.db.QueryRowContext(ctx, query, orderNumber).Scan(
		&p.OrderNumber,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.TransactionID,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) UpdatePayment(ctx context.Context, p *Payment) error {
	query := `UPDATE payments SET status = $2, transaction_id = $3 WHERE order_number = $1`

	res, err := r.db.ExecContext(ctx, query, p.OrderNumber, p.Status, p.TransactionID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
