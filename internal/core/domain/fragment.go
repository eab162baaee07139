package domain

// Fragment хранит разметку одного объявления внутри индексной страницы
type Fragment struct {
	Index int    // позиция в документе, начиная с 0
	HTML  string // outer HTML карточки
}

// ExtractionResult описывает результат разбора одного фрагмента: запись или причину отказа.
type ExtractionResult struct {
	Record *ListingRecord
	Reason string
}

// Extracted создает успешный результат
func Extracted(record ListingRecord) ExtractionResult {
	return ExtractionResult{Record: &record}
}

// Rejected создает результат-отказ с причиной
func Rejected(reason string) ExtractionResult {
	return ExtractionResult{Reason: reason}
}

// IsRejected возвращает true, если запись не была извлечена
func (r ExtractionResult) IsRejected() bool {
	return r.Record == nil
}

// Err превращает отказ в ошибку ExtractionRejected, для успешного результата возвращает nil
func (r ExtractionResult) Err() error {
	if !r.IsRejected() {
		return nil
	}
	return &ExtractionRejected{Reason: r.Reason}
}
