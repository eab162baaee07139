package domain

// ListingFilter описывает параметры выборки для веб-интерфейса фильтров
type ListingFilter struct {
	Category     Category
	Rooms        string   // точное совпадение со значением из RoomVocabulary; пустое значение не фильтрует
	AreaMin      *float64 // минимальная площадь, nil не фильтрует
	PropertyType string   // только для продажи; пустое значение и "any" не фильтруют
	Limit        int      // при 0 ограничения нет
}

// RoomsFilterFromCode переводит код комнатности ("0".."5") в значение словаря.
func RoomsFilterFromCode(code string) (string, bool) {
	rooms, ok := RoomVocabulary[code]
	return rooms, ok
}

// HasPropertyTypeFilter сообщает, нужно ли фильтровать по типу жилья
func (f ListingFilter) HasPropertyTypeFilter() bool {
	return f.Category == CategorySale && f.PropertyType != "" && f.PropertyType != "any"
}
