package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []interface{}
}

// fakeConn ведет себя как таблица с уникальным address: повторная вставка ничего не меняет
type fakeConn struct {
	addresses map[string]bool
	calls     []execCall
	commits   int
	execErr   error
	beginErr  error
	released  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{addresses: make(map[string]bool)}
}

func (c *fakeConn) Begin(ctx context.Context) (pgx.Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	return &fakeTx{conn: c}, nil
}

// fakeTx реализует только то, что вызывает сессия записи
type fakeTx struct {
	pgx.Tx
	conn    *fakeConn
	pending string
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	tx.conn.calls = append(tx.conn.calls, execCall{sql: sql, args: args})
	if tx.conn.execErr != nil {
		return pgconn.CommandTag{}, tx.conn.execErr
	}
	address := args[0].(string)
	if tx.conn.addresses[address] {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	tx.pending = address
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.conn.commits++
	if tx.pending != "" {
		tx.conn.addresses[tx.pending] = true
	}
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error { return nil }

func newSession(conn *fakeConn, category domain.Category) *listingWriterSession {
	return &listingWriterSession{conn: conn, release: func() { conn.released = true }, category: category}
}

func TestUpsertIgnoreRentalInsertThenDuplicate(t *testing.T) {
	conn := newFakeConn()
	session := newSession(conn, domain.CategoryRental)
	record := domain.ListingRecord{
		Category: domain.CategoryRental,
		Address:  "Невский пр., 100",
		Price:    "45000 ₽",
		Rooms:    "2-к. квартира",
		Area:     "54",
		Link:     "https://www.avito.ru/item/1",
	}

	inserted, err := session.UpsertIgnore(context.Background(), record)
	require.NoError(t, err)
	assert.True(t, inserted)

	changed := record
	changed.Price = "50000 ₽"
	inserted, err = session.UpsertIgnore(context.Background(), changed)
	require.NoError(t, err)
	assert.False(t, inserted, "existing address is never updated")

	require.Len(t, conn.calls, 2)
	assert.Equal(t, insertRentalSQL, conn.calls[0].sql)
	assert.Equal(t, []interface{}{"Невский пр., 100", "45000 ₽", "2-к. квартира", "54", "https://www.avito.ru/item/1"}, conn.calls[0].args)
	assert.Equal(t, 2, conn.commits)
}

func TestUpsertIgnoreSaleWritesPropertyType(t *testing.T) {
	conn := newFakeConn()
	session := newSession(conn, domain.CategorySale)

	inserted, err := session.UpsertIgnore(context.Background(), domain.ListingRecord{
		Category:     domain.CategorySale,
		Address:      "ул. Марата, 12",
		Price:        "6500000 ₽",
		Rooms:        "1-к. квартира",
		Area:         "38",
		PropertyType: domain.PropertyTypeNewBuild,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	require.Len(t, conn.calls, 1)
	assert.Equal(t, insertSaleSQL, conn.calls[0].sql)
	require.Len(t, conn.calls[0].args, 6)
	assert.Equal(t, "ул. Марата, 12", conn.calls[0].args[0])
	assert.Equal(t, string(domain.PropertyTypeNewBuild), conn.calls[0].args[1])
	assert.Nil(t, conn.calls[0].args[5], "empty link is written as NULL")
}

func TestInsertStatementRentalWithoutLink(t *testing.T) {
	sql, args := insertStatement(domain.CategoryRental, domain.ListingRecord{Address: "Садовая ул., 1", Price: "30000 ₽"})

	assert.Equal(t, insertRentalSQL, sql)
	assert.Contains(t, sql, "ON CONFLICT (address) DO NOTHING")
	require.Len(t, args, 5)
	assert.Nil(t, args[4])
}

func TestUpsertIgnoreErrors(t *testing.T) {
	boom := errors.New("connection reset")

	conn := newFakeConn()
	conn.execErr = boom
	_, err := newSession(conn, domain.CategoryRental).UpsertIgnore(context.Background(), domain.ListingRecord{Address: "a"})
	var persistErr *domain.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "insert", persistErr.Op)
	assert.Equal(t, "a", persistErr.Address)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, conn.commits)

	conn = newFakeConn()
	conn.beginErr = boom
	_, err = newSession(conn, domain.CategoryRental).UpsertIgnore(context.Background(), domain.ListingRecord{Address: "b"})
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "begin", persistErr.Op)
}

func TestWriterSessionCloseReleasesConnection(t *testing.T) {
	conn := newFakeConn()
	session := newSession(conn, domain.CategoryRental)

	require.NoError(t, session.Close())
	assert.True(t, conn.released)
	require.NoError(t, session.Close())

	_, err := session.UpsertIgnore(context.Background(), domain.ListingRecord{Address: "c"})
	var persistErr *domain.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Empty(t, conn.calls)
}
