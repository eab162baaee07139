package normalizer

import (
	"testing"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare amount", raw: "50000", want: "50000 ₽"},
		{name: "glyph already present", raw: "45 000 ₽", want: "45 000 ₽"},
		{name: "non-breaking spaces kept", raw: "45\u00a0000\u00a0₽", want: "45\u00a0000\u00a0₽"},
		{name: "edge non-breaking spaces trimmed", raw: "\u00a045\u00a0000\u00a0", want: "45\u00a0000 ₽"},
		{name: "free text kept", raw: "договорная", want: "договорная ₽"},
		{name: "padded", raw: "  30000\n", want: "30000 ₽"},
		{name: "empty", raw: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePrice(tt.raw))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Невский пр.,\u00a0100", NormalizeText("\n  Невский пр.,\u00a0100 \t"))
	assert.Equal(t, "ул.  Марата", NormalizeText("ул.  Марата"))
	assert.Equal(t, "", NormalizeText("\u00a0 \n"))
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		wantRooms string
		wantArea  string
	}{
		{name: "full title", title: "2-к. квартира, 54 м², 5/9 эт.", wantRooms: "2-к. квартира", wantArea: "54"},
		{name: "decimal area", title: "1-к. квартира, 38,5 м², 2/5 эт.", wantRooms: "1-к. квартира", wantArea: "38,5"},
		{name: "studio", title: "Квартира-студия, 25 м², 10/25 эт.", wantRooms: "Квартира-студия", wantArea: "25"},
		{name: "no separator", title: "Студия", wantRooms: "Студия", wantArea: domain.UnknownValue},
		{name: "no area part", title: "3-к. квартира, 7/9 эт.", wantRooms: "3-к. квартира", wantArea: domain.UnknownValue},
		{name: "area only in later part", title: "Апартаменты, 4/12 эт., 31 м²", wantRooms: "Апартаменты", wantArea: "31"},
		{name: "empty title", title: "", wantRooms: domain.UnknownValue, wantArea: domain.UnknownValue},
		{name: "glyph without number", title: "Квартира, м²", wantRooms: "Квартира", wantArea: domain.UnknownValue},
		{name: "leading separator", title: ", 40 м²", wantRooms: domain.UnknownValue, wantArea: "40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms, area := SplitTitle(tt.title)
			assert.Equal(t, tt.wantRooms, rooms)
			assert.Equal(t, tt.wantArea, area)
		})
	}
}

func TestClassifyPropertyType(t *testing.T) {
	assert.Equal(t, domain.PropertyTypeNewBuild, ClassifyPropertyType("Продается квартира в НОВОСТРОЙКЕ от застройщика"))
	assert.Equal(t, domain.PropertyTypeResale, ClassifyPropertyType("Вторичное жилье, один собственник"))
	assert.Equal(t, domain.PropertyTypeResale, ClassifyPropertyType("Апартаменты у моря"))
	assert.Equal(t, domain.PropertyTypeResale, ClassifyPropertyType(""))
	assert.Equal(t, domain.PropertyTypeResale, ClassifyPropertyType("Светлая квартира"))
}

func TestFindMarker(t *testing.T) {
	marker, ok := FindMarker("Please solve the CAPTCHA", []string{"captcha", "капча"})
	require.True(t, ok)
	assert.Equal(t, "captcha", marker)

	marker, ok = FindMarker("Введите КАПЧУ", []string{"captcha", "капч"})
	require.True(t, ok)
	assert.Equal(t, "капч", marker)

	_, ok = FindMarker("обычная страница", []string{"captcha", "капча"})
	assert.False(t, ok)
}

func TestParseAreaValue(t *testing.T) {
	tests := []struct {
		area   string
		want   float64
		wantOK bool
	}{
		{area: "54", want: 54, wantOK: true},
		{area: "38,5", want: 38.5, wantOK: true},
		{area: "38,5 м²", want: 38.5, wantOK: true},
		{area: domain.UnknownValue, wantOK: false},
		{area: "", wantOK: false},
		{area: "много", wantOK: false},
		{area: "1,2,3", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.area, func(t *testing.T) {
			got, ok := ParseAreaValue(tt.area)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseAreaInput(t *testing.T) {
	v, err := ParseAreaInput("45,5")
	require.NoError(t, err)
	assert.InDelta(t, 45.5, v, 1e-9)

	_, err = ParseAreaInput("abc")
	assert.Error(t, err)
}
