package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

type fakeFetcher struct {
	pages   map[string]string
	errs    map[string]error
	openErr error

	mu       sync.Mutex
	opened   int
	closed   int
	visited  []string
	onOpen   func()
	onReturn func()
}

func (f *fakeFetcher) OpenSession(ctx context.Context) (port.PageSessionPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	if f.onOpen != nil {
		f.onOpen()
	}
	return &fakeSession{fetcher: f}, nil
}

type fakeSession struct {
	fetcher *fakeFetcher
}

func (s *fakeSession) FetchIndexPage(ctx context.Context, url string) (string, error) {
	s.fetcher.mu.Lock()
	defer s.fetcher.mu.Unlock()
	s.fetcher.visited = append(s.fetcher.visited, url)
	if err, ok := s.fetcher.errs[url]; ok {
		return "", err
	}
	return s.fetcher.pages[url], nil
}

func (s *fakeSession) Close() error {
	s.fetcher.mu.Lock()
	defer s.fetcher.mu.Unlock()
	s.fetcher.closed++
	if s.fetcher.onReturn != nil {
		s.fetcher.onReturn()
	}
	return nil
}

// lineExtractor трактует каждую строку разметки как карточку "адрес|цена|заголовок"
type lineExtractor struct {
	mu        sync.Mutex
	extracted []int
}

func (e *lineExtractor) SplitFragments(markup string) ([]domain.Fragment, error) {
	if markup == "broken" {
		return nil, errors.New("unparsable markup")
	}
	var fragments []domain.Fragment
	for i, line := range strings.Split(strings.TrimSpace(markup), "\n") {
		if line == "" {
			continue
		}
		fragments = append(fragments, domain.Fragment{Index: i, HTML: line})
	}
	return fragments, nil
}

func (e *lineExtractor) Extract(fragment domain.Fragment, category domain.Category) domain.ExtractionResult {
	e.mu.Lock()
	e.extracted = append(e.extracted, fragment.Index)
	e.mu.Unlock()

	if fragment.HTML == "panic" {
		panic("malformed fragment")
	}
	parts := strings.Split(fragment.HTML, "|")
	if len(parts) < 3 || parts[0] == "" {
		return domain.Rejected("address not found")
	}
	return domain.Extracted(domain.ListingRecord{
		Category: category,
		Address:  parts[0],
		Price:    parts[1],
		Rooms:    parts[2],
		Area:     domain.UnknownValue,
	})
}

type fakeStorage struct {
	mu       sync.Mutex
	rows     map[domain.Category][]domain.ListingRecord
	failOn   map[string]bool
	openErr  error
	sessions int
	closed   int
	writes   int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{rows: make(map[domain.Category][]domain.ListingRecord), failOn: map[string]bool{}}
}

func (s *fakeStorage) OpenSession(ctx context.Context, category domain.Category) (port.ListingWriterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.sessions++
	return &fakeWriter{storage: s, category: category}, nil
}

func (s *fakeStorage) FindListings(ctx context.Context, filter domain.ListingFilter) ([]domain.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ListingRecord
	for _, r := range s.rows[filter.Category] {
		if filter.Rooms != "" && r.Rooms != filter.Rooms {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStorage) count(category domain.Category, address string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows[category] {
		if r.Address == address {
			n++
		}
	}
	return n
}

type fakeWriter struct {
	storage  *fakeStorage
	category domain.Category
}

func (w *fakeWriter) UpsertIgnore(ctx context.Context, record domain.ListingRecord) (bool, error) {
	s := w.storage
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failOn[record.Address] {
		return false, &domain.PersistenceError{Op: "insert", Address: record.Address, Err: errors.New("connection reset")}
	}
	for _, r := range s.rows[w.category] {
		if r.Address == record.Address {
			return false, nil
		}
	}
	s.rows[w.category] = append(s.rows[w.category], record)
	return true, nil
}

func (w *fakeWriter) Close() error {
	w.storage.mu.Lock()
	defer w.storage.mu.Unlock()
	w.storage.closed++
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.SavedListingEvent
	err    error
}

func (e *fakeEvents) PublishSaved(ctx context.Context, event domain.SavedListingEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

type fakeNotifier struct {
	chatID  string
	records []domain.ListingRecord
	calls   int
	err     error
}

func (n *fakeNotifier) SendListings(ctx context.Context, chatID string, records []domain.ListingRecord) error {
	n.calls++
	n.chatID = chatID
	n.records = records
	return n.err
}

func page(lines ...string) string {
	return strings.Join(lines, "\n")
}

func manyListings(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("ул. Тестовая, %d|%d ₽|1-к. квартира", i+1, 30000+i)
	}
	return page(lines...)
}
