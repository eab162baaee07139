package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/normalizer"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	"github.com/dgraph-io/badger/v4"
)

const (
	maxConflictRetries = 3
	sequenceBandwidth  = 100
)

// Ключи:
//   listing:<category>:data:<address> -> JSON записи
//   listing:<category>:order:<seq>    -> address (порядок вставки)

type storedListing struct {
	Address      string `json:"address"`
	Price        string `json:"price"`
	Rooms        string `json:"rooms"`
	Area         string `json:"area"`
	Link         string `json:"link,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
}

// Options задает параметры открытия базы
type Options struct {
	Path     string
	InMemory bool
}

// BadgerListingStorageAdapter реализует встроенное хранилище с той же семантикой, что и PostgreSQL
type BadgerListingStorageAdapter struct {
	db *badger.DB

	mu        sync.Mutex
	sequences map[domain.Category]*badger.Sequence
}

// Open открывает базу BadgerDB. Логи badger уходят в logger.
func Open(opts Options, logger port.LoggerPort) (*BadgerListingStorageAdapter, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("badger path is required")
	}

	badgerOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithLogger(newBadgerLogger(logger))
	if opts.InMemory {
		badgerOpts = badgerOpts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return NewBadgerListingStorageAdapter(db)
}

func NewBadgerListingStorageAdapter(db *badger.DB) (*BadgerListingStorageAdapter, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	return &BadgerListingStorageAdapter{
		db:        db,
		sequences: make(map[domain.Category]*badger.Sequence),
	}, nil
}

func dataKey(category domain.Category, address string) []byte {
	return []byte(fmt.Sprintf("listing:%s:data:%s", category, address))
}

func orderPrefix(category domain.Category) []byte {
	return []byte(fmt.Sprintf("listing:%s:order:", category))
}

func orderKey(category domain.Category, seq uint64) []byte {
	key := orderPrefix(category)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}

func (a *BadgerListingStorageAdapter) sequence(category domain.Category) (*badger.Sequence, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if seq, ok := a.sequences[category]; ok {
		return seq, nil
	}
	seq, err := a.db.GetSequence([]byte(fmt.Sprintf("listing:%s:seq", category)), sequenceBandwidth)
	if err != nil {
		return nil, err
	}
	a.sequences[category] = seq
	return seq, nil
}

// OpenSession открывает сессию записи для категории
func (a *BadgerListingStorageAdapter) OpenSession(ctx context.Context, category domain.Category) (port.ListingWriterSession, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "open", Err: err}
	}
	if a.db.IsClosed() {
		return nil, &domain.PersistenceError{Op: "open", Err: errors.New("database is closed")}
	}

	seq, err := a.sequence(category)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "open", Err: err}
	}
	return &writerSession{db: a.db, seq: seq, category: category}, nil
}

// FindListings обходит записи категории в порядке вставки и применяет фильтр
func (a *BadgerListingStorageAdapter) FindListings(ctx context.Context, filter domain.ListingFilter) ([]domain.ListingRecord, error) {
	if !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, filter.Category)
	}

	records := make([]domain.ListingRecord, 0)
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := orderPrefix(filter.Category)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			address, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			item, err := txn.Get(dataKey(filter.Category, string(address)))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}

			var stored storedListing
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}

			record := toRecord(filter.Category, stored)
			if !matches(filter, record) {
				continue
			}
			records = append(records, record)
			if filter.Limit > 0 && len(records) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "select", Err: err}
	}
	return records, nil
}

func matches(filter domain.ListingFilter, record domain.ListingRecord) bool {
	if filter.Rooms != "" && record.Rooms != filter.Rooms {
		return false
	}
	if filter.AreaMin != nil {
		area, ok := normalizer.ParseAreaValue(record.Area)
		if !ok || area < *filter.AreaMin {
			return false
		}
	}
	if filter.HasPropertyTypeFilter() && string(record.PropertyType) != filter.PropertyType {
		return false
	}
	return true
}

func toRecord(category domain.Category, s storedListing) domain.ListingRecord {
	return domain.ListingRecord{
		Category:     category,
		Address:      s.Address,
		Price:        s.Price,
		Rooms:        s.Rooms,
		Area:         s.Area,
		Link:         s.Link,
		PropertyType: domain.PropertyType(s.PropertyType),
	}
}

// Close освобождает последовательности и закрывает базу
func (a *BadgerListingStorageAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for category, seq := range a.sequences {
		if err := seq.Release(); err != nil {
			errs = append(errs, err)
		}
		delete(a.sequences, category)
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type writerSession struct {
	db       *badger.DB
	seq      *badger.Sequence
	category domain.Category
	closed   bool
}

// UpsertIgnore вставляет запись, если адреса еще нет. Существующая запись не меняется.
func (s *writerSession) UpsertIgnore(ctx context.Context, record domain.ListingRecord) (bool, error) {
	if s.closed {
		return false, &domain.PersistenceError{Op: "insert", Address: record.Address, Err: errors.New("session is closed")}
	}

	stored := storedListing{
		Address: record.Address,
		Price:   record.Price,
		Rooms:   record.Rooms,
		Area:    record.Area,
		Link:    record.Link,
	}
	if s.category == domain.CategorySale {
		stored.PropertyType = string(record.PropertyType)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return false, &domain.PersistenceError{Op: "marshal", Address: record.Address, Err: err}
	}

	var inserted bool
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, &domain.PersistenceError{Op: "insert", Address: record.Address, Err: err}
		}

		inserted = false
		err = s.db.Update(func(txn *badger.Txn) error {
			key := dataKey(s.category, record.Address)
			_, err := txn.Get(key)
			if err == nil {
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			next, err := s.seq.Next()
			if err != nil {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
			if err := txn.Set(orderKey(s.category, next), []byte(record.Address)); err != nil {
				return err
			}
			inserted = true
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return false, &domain.PersistenceError{Op: "insert", Address: record.Address, Err: err}
	}
	return inserted, nil
}

func (s *writerSession) Close() error {
	s.closed = true
	return nil
}
