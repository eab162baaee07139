package postgres

import (
	"fmt"
	"strings"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// areaNumericExpr превращает текстовую площадь ("38,5") в число. Нечисловые значения дают NULL
// и под условие не попадают.
const areaNumericExpr = `CAST(NULLIF(REPLACE(REGEXP_REPLACE(REPLACE(area, ' м²', ''), '[^0-9,]', '', 'g'), ',', '.'), '') AS numeric)`

type queryBuilder struct {
	table      string
	columns    []string
	conditions []string
	args       []interface{}
	argId      int
	limit      int
}

func newQueryBuilder(category domain.Category) *queryBuilder {
	columns := []string{"address", "price", "rooms", "area", "link"}
	if category == domain.CategorySale {
		columns = append(columns, "property_type")
	}
	return &queryBuilder{
		table:   category.Table(),
		columns: columns,
		args:    make([]interface{}, 0),
		argId:   1,
	}
}

func (qb *queryBuilder) addCondition(condition string, fieldName string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, fieldName, qb.argId))
	qb.args = append(qb.args, arg)
	qb.argId++
}

// build возвращает текст запроса и аргументы
func (qb *queryBuilder) build() (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(qb.columns, ", "), qb.table)
	if len(qb.conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(qb.conditions, " AND "))
	}
	if qb.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", qb.limit)
	}
	return b.String(), qb.args
}

// applyFilters разбирает фильтр веб-интерфейса в запрос к таблице категории
func applyFilters(filter domain.ListingFilter) (string, []interface{}) {
	qb := newQueryBuilder(filter.Category)

	// Комнатность сравнивается точно со значением словаря
	if filter.Rooms != "" {
		qb.addCondition("%s = $%d", "rooms", filter.Rooms)
	}

	if filter.AreaMin != nil {
		qb.addCondition("%s >= $%d", areaNumericExpr, *filter.AreaMin)
	}

	if filter.HasPropertyTypeFilter() {
		qb.addCondition("%s = $%d", "property_type", filter.PropertyType)
	}

	qb.limit = filter.Limit
	return qb.build()
}
