package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *BadgerListingStorageAdapter {
	t.Helper()
	store, err := Open(Options{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rental(address, rooms, area string) domain.ListingRecord {
	return domain.ListingRecord{
		Category: domain.CategoryRental,
		Address:  address,
		Price:    "45 000 ₽",
		Rooms:    rooms,
		Area:     area,
		Link:     "https://www.avito.ru/" + address,
	}
}

func TestUpsertIgnoreKeepsFirstRecord(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)

	session, err := store.OpenSession(ctx, domain.CategoryRental)
	require.NoError(t, err)
	defer session.Close()

	inserted, err := session.UpsertIgnore(ctx, rental("Ленина, 1", "1-к. квартира", "38 м²"))
	require.NoError(t, err)
	assert.True(t, inserted)

	changed := rental("Ленина, 1", "3-к. квартира", "90 м²")
	changed.Price = "99 000 ₽"
	inserted, err = session.UpsertIgnore(ctx, changed)
	require.NoError(t, err)
	assert.False(t, inserted)

	records, err := store.FindListings(ctx, domain.ListingFilter{Category: domain.CategoryRental})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "45 000 ₽", records[0].Price)
	assert.Equal(t, "1-к. квартира", records[0].Rooms)
}

func TestCategoriesAreSeparate(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)

	rentSession, err := store.OpenSession(ctx, domain.CategoryRental)
	require.NoError(t, err)
	saleSession, err := store.OpenSession(ctx, domain.CategorySale)
	require.NoError(t, err)

	_, err = rentSession.UpsertIgnore(ctx, rental("Мира, 5", "2-к. квартира", "50 м²"))
	require.NoError(t, err)

	sale := rental("Мира, 5", "2-к. квартира", "50 м²")
	sale.Category = domain.CategorySale
	sale.PropertyType = domain.PropertyTypeNewBuild
	inserted, err := saleSession.UpsertIgnore(ctx, sale)
	require.NoError(t, err)
	assert.True(t, inserted)

	records, err := store.FindListings(ctx, domain.ListingFilter{Category: domain.CategorySale})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.PropertyTypeNewBuild, records[0].PropertyType)
	assert.Equal(t, domain.CategorySale, records[0].Category)
}

func TestFindListingsFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)

	session, err := store.OpenSession(ctx, domain.CategoryRental)
	require.NoError(t, err)

	for _, r := range []domain.ListingRecord{
		rental("Первая, 1", "2-к. квартира", "38,5 м²"),
		rental("Вторая, 2", "1-к. квартира", "30 м²"),
		rental("Третья, 3", "2-к. квартира", "unknown"),
		rental("Четвертая, 4", "2-к. квартира", "40 м²"),
	} {
		_, err := session.UpsertIgnore(ctx, r)
		require.NoError(t, err)
	}

	all, err := store.FindListings(ctx, domain.ListingFilter{Category: domain.CategoryRental})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Первая, 1", all[0].Address)
	assert.Equal(t, "Четвертая, 4", all[3].Address)

	minArea := 38.5
	filtered, err := store.FindListings(ctx, domain.ListingFilter{
		Category: domain.CategoryRental,
		Rooms:    "2-к. квартира",
		AreaMin:  &minArea,
	})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "Первая, 1", filtered[0].Address)
	assert.Equal(t, "Четвертая, 4", filtered[1].Address)

	limited, err := store.FindListings(ctx, domain.ListingFilter{Category: domain.CategoryRental, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFindListingsPropertyType(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)

	session, err := store.OpenSession(ctx, domain.CategorySale)
	require.NoError(t, err)

	for i, pt := range []domain.PropertyType{domain.PropertyTypeNewBuild, domain.PropertyTypeResale, domain.PropertyTypeNewBuild} {
		r := rental(fmt.Sprintf("Дом %d", i), "1-к. квартира", "30 м²")
		r.Category = domain.CategorySale
		r.PropertyType = pt
		_, err := session.UpsertIgnore(ctx, r)
		require.NoError(t, err)
	}

	newOnly, err := store.FindListings(ctx, domain.ListingFilter{Category: domain.CategorySale, PropertyType: string(domain.PropertyTypeNewBuild)})
	require.NoError(t, err)
	assert.Len(t, newOnly, 2)

	anyType, err := store.FindListings(ctx, domain.ListingFilter{Category: domain.CategorySale, PropertyType: "any"})
	require.NoError(t, err)
	assert.Len(t, anyType, 3)
}

func TestConcurrentSessionsSameAddress(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	insertedCount := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := store.OpenSession(ctx, domain.CategoryRental)
			if err != nil {
				return
			}
			defer session.Close()
			inserted, err := session.UpsertIgnore(ctx, rental("Общая, 7", "1-к. квартира", "30 м²"))
			if err == nil && inserted {
				mu.Lock()
				insertedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, insertedCount)
	records, err := store.FindListings(ctx, domain.ListingFilter{Category: domain.CategoryRental})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUnknownCategory(t *testing.T) {
	store := openMemory(t)

	_, err := store.OpenSession(context.Background(), domain.Category("lease"))
	assert.True(t, errors.Is(err, domain.ErrUnknownCategory))

	_, err = store.FindListings(context.Background(), domain.ListingFilter{Category: "lease"})
	assert.True(t, errors.Is(err, domain.ErrUnknownCategory))
}

func TestClosedSessionRejectsWrites(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)

	session, err := store.OpenSession(ctx, domain.CategoryRental)
	require.NoError(t, err)
	require.NoError(t, session.Close())

	_, err = session.UpsertIgnore(ctx, rental("Ленина, 1", "1-к. квартира", "38 м²"))
	var pErr *domain.PersistenceError
	assert.True(t, errors.As(err, &pErr))
}
