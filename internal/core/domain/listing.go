package domain

import "time"

// Category обозначает раздел сайта, из которого забираются объявления
type Category string

const (
	CategoryRental Category = "rental"
	CategorySale   Category = "sale"
)

// Valid проверяет, что категория известна
func (c Category) Valid() bool {
	return c == CategoryRental || c == CategorySale
}

// Table возвращает имя таблицы хранилища для категории
func (c Category) Table() string {
	return string(c)
}

// PropertyType задает тип жилья для объявлений о продаже
type PropertyType string

const (
	PropertyTypeNewBuild PropertyType = "новостройка"
	PropertyTypeResale   PropertyType = "вторичка"
)

// UnknownValue подставляется для полей, которые не удалось разобрать
const UnknownValue = "unknown"

// CurrencyGlyph – это знак валюты, которым заканчивается нормализованная цена
const CurrencyGlyph = "₽"

// AreaGlyph отмечает площадь в заголовке объявления
const AreaGlyph = "м²"

// Закрытый словарь значений комнатности. Ключом служит код из формы фильтра.
var RoomVocabulary = map[string]string{
	"0": "Квартира-студия",
	"1": "1-к. квартира",
	"2": "2-к. квартира",
	"3": "3-к. квартира",
	"4": "4-к. квартира",
	"5": "5-к. квартира",
}

// ListingRecord – это единица сохранения. Адрес является естественным ключом.
type ListingRecord struct {
	Category     Category
	Address      string
	Price        string
	Rooms        string
	Area         string
	Link         string       // пустая строка, если ссылку найти не удалось
	PropertyType PropertyType // заполняется только для продажи
}

// HasLink сообщает, есть ли у записи ссылка на исходное объявление
func (r ListingRecord) HasLink() bool {
	return r.Link != ""
}

// SavedListingEvent описывает новую запись и уходит во внешнюю шину
type SavedListingEvent struct {
	Record  ListingRecord
	RunID   string
	SavedAt time.Time
}
