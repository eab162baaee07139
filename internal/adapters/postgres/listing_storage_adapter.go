package postgres

import (
	"context"
	"fmt"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertRentalSQL = `INSERT INTO rental (address, price, rooms, area, link)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO NOTHING`

	insertSaleSQL = `INSERT INTO sale (address, property_type, price, rooms, area, link)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO NOTHING`
)

// PostgresListingStorageAdapter реализует ListingStoragePort для PostgreSQL
type PostgresListingStorageAdapter struct {
	pool *pgxpool.Pool
}

// NewPostgresListingStorageAdapter создает новый экземпляр адаптера.
func NewPostgresListingStorageAdapter(pool *pgxpool.Pool) (*PostgresListingStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresListingStorageAdapter{pool: pool}, nil
}

// OpenSession берет из пула одно соединение на весь проход
func (a *PostgresListingStorageAdapter) OpenSession(ctx context.Context, category domain.Category) (port.ListingWriterSession, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}

	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "acquire", Err: err}
	}
	return &listingWriterSession{conn: conn, release: conn.Release, category: category}, nil
}

// FindListings выполняет выборку по фильтру
func (a *PostgresListingStorageAdapter) FindListings(ctx context.Context, filter domain.ListingFilter) ([]domain.ListingRecord, error) {
	if !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, filter.Category)
	}

	query, args := applyFilters(filter)

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "select", Err: err}
	}
	defer rows.Close()

	records := make([]domain.ListingRecord, 0)
	for rows.Next() {
		record, err := scanListing(rows, filter.Category)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "scan", Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "select", Err: err}
	}

	return records, nil
}

func scanListing(rows pgx.Rows, category domain.Category) (domain.ListingRecord, error) {
	var (
		record                   domain.ListingRecord
		price, rooms, area, link *string
		propertyType             *string
	)
	record.Category = category

	dest := []interface{}{&record.Address, &price, &rooms, &area, &link}
	if category == domain.CategorySale {
		dest = append(dest, &propertyType)
	}
	if err := rows.Scan(dest...); err != nil {
		return record, err
	}

	record.Price = deref(price)
	record.Rooms = deref(rooms)
	record.Area = deref(area)
	record.Link = deref(link)
	record.PropertyType = domain.PropertyType(deref(propertyType))
	return record, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// txStarter – это соединение, на котором открываются транзакции записи
type txStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// listingWriterSession держит одно соединение; каждая запись в своей транзакции
type listingWriterSession struct {
	conn     txStarter
	release  func()
	category domain.Category
}

// insertStatement подбирает запрос и аргументы под таблицу категории.
// Пустая ссылка пишется как NULL.
func insertStatement(category domain.Category, record domain.ListingRecord) (string, []interface{}) {
	var link interface{}
	if record.HasLink() {
		link = record.Link
	}

	if category == domain.CategorySale {
		return insertSaleSQL, []interface{}{record.Address, string(record.PropertyType), record.Price, record.Rooms, record.Area, link}
	}
	return insertRentalSQL, []interface{}{record.Address, record.Price, record.Rooms, record.Area, link}
}

func (s *listingWriterSession) UpsertIgnore(ctx context.Context, record domain.ListingRecord) (bool, error) {
	if s.conn == nil {
		return false, &domain.PersistenceError{Op: "insert", Address: record.Address, Err: fmt.Errorf("session is closed")}
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return false, &domain.PersistenceError{Op: "begin", Address: record.Address, Err: err}
	}
	defer tx.Rollback(ctx)

	sql, args := insertStatement(s.category, record)
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return false, &domain.PersistenceError{Op: "insert", Address: record.Address, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, &domain.PersistenceError{Op: "commit", Address: record.Address, Err: err}
	}

	return tag.RowsAffected() == 1, nil
}

func (s *listingWriterSession) Close() error {
	if s.conn != nil {
		if s.release != nil {
			s.release()
		}
		s.conn = nil
	}
	return nil
}
