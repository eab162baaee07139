// Package normalizer содержит чистые функции приведения сырых текстовых полей
// объявления к каноническим значениям. Функции не паникуют на любых входных данных.
package normalizer

import (
	"strconv"
	"strings"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Разделитель частей заголовка ("2-к. квартира, 45 м², 3/9 эт.")
const titleSeparator = ", "

// Маркеры типа жилья в описании объявления о продаже
var (
	newBuildMarkers = []string{"новостр"}
	resaleMarkers   = []string{"вторич", "апартамент"}
)

// NormalizeText обрезает пробельные символы (включая неразрывные) по краям строки.
// Текст внутри остается таким, каким его отдал сайт: адрес является ключом дедупликации.
func NormalizeText(raw string) string {
	return strings.TrimSpace(raw)
}

// Lower приводит строку к нижнему регистру по правилам русской локали.
func Lower(s string) string {
	// Caser хранит состояние, поэтому создается на каждый вызов
	return cases.Lower(language.Russian).String(s)
}

// NormalizePrice дописывает знак рубля через пробел, если его нет.
// Нечисловая цена не отбрасывается: текст остается как есть.
func NormalizePrice(raw string) string {
	price := NormalizeText(raw)
	if price == "" {
		return ""
	}
	if !strings.Contains(price, domain.CurrencyGlyph) {
		price += " " + domain.CurrencyGlyph
	}
	return price
}

// SplitTitle делит заголовок по ", ". Первая часть дает комнатность, первая часть со знаком м² дает
// площадь без знака. Каждое поле независимо получает UnknownValue, если разобрать его не удалось.
func SplitTitle(title string) (rooms string, area string) {
	rooms, area = domain.UnknownValue, domain.UnknownValue

	parts := strings.Split(NormalizeText(title), titleSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if parts[0] != "" {
		rooms = parts[0]
	}

	for _, part := range parts {
		if !strings.Contains(part, domain.AreaGlyph) {
			continue
		}
		value := strings.TrimSpace(strings.ReplaceAll(part, domain.AreaGlyph, ""))
		if value != "" {
			area = value
		}
		break
	}

	return rooms, area
}

// ClassifyPropertyType определяет тип жилья по описанию. Без явного маркера новостройки
// объявление считается вторичкой; упоминание апартаментов тоже трактуется как вторичка.
func ClassifyPropertyType(description string) domain.PropertyType {
	text := Lower(description)
	if _, ok := FindMarker(text, newBuildMarkers); ok {
		return domain.PropertyTypeNewBuild
	}
	if _, ok := FindMarker(text, resaleMarkers); ok {
		return domain.PropertyTypeResale
	}
	return domain.PropertyTypeResale
}

// FindMarker ищет в тексте первый маркер без учета регистра и возвращает его.
func FindMarker(text string, markers []string) (string, bool) {
	lowered := Lower(text)
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if strings.Contains(lowered, Lower(marker)) {
			return marker, true
		}
	}
	return "", false
}

// ParseAreaValue извлекает число из строкового значения площади так же, как это делает
// фильтр в хранилище: остаются цифры и запятая, запятая считается десятичным разделителем.
func ParseAreaValue(area string) (float64, bool) {
	if area == "" || area == domain.UnknownValue {
		return 0, false
	}

	var b strings.Builder
	for _, r := range strings.ReplaceAll(area, " "+domain.AreaGlyph, "") {
		if (r >= '0' && r <= '9') || r == ',' {
			b.WriteRune(r)
		}
	}

	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseAreaInput разбирает минимальную площадь из формы ("45,5" или "45.5").
func ParseAreaInput(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
}
