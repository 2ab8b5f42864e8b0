package header

import "strings"

// Field is a canonical sales-record column.
type Field int

const (
	FieldDate Field = iota
	FieldChannel
	FieldProduct
	FieldQuantity
	FieldUnitPrice
	FieldUnitCost
	FieldSalesAmount
)

func (f Field) String() string {
	switch f {
	case FieldDate:
		return "date"
	case FieldChannel:
		return "channel"
	case FieldProduct:
		return "product"
	case FieldQuantity:
		return "quantity"
	case FieldUnitPrice:
		return "unit_price"
	case FieldUnitCost:
		return "unit_cost"
	case FieldSalesAmount:
		return "sales_amount"
	default:
		return "unknown"
	}
}

// FieldMap maps a canonical field to its column index.
type FieldMap map[Field]int

// Column returns the column index for f.
func (m FieldMap) Column(f Field) (int, bool) {
	idx, ok := m[f]
	return idx, ok
}

// HasRequired reports whether the mapping carries a date and at least one amount source.
func (m FieldMap) HasRequired() bool {
	if _, ok := m[FieldDate]; !ok {
		return false
	}
	for _, f := range []Field{FieldQuantity, FieldUnitPrice, FieldSalesAmount} {
		if _, ok := m[f]; ok {
			return true
		}
	}
	return false
}

// fieldRule matches a column name when every token of any alternative is contained in it.
type fieldRule struct {
	field        Field
	alternatives [][]string
	exclude      []string
}

// fieldRules are evaluated in order; the first matching rule claims the column.
var fieldRules = []fieldRule{
	{field: FieldDate, alternatives: [][]string{{"일자"}, {"날짜"}, {"판매일"}}},
	{field: FieldUnitCost, alternatives: [][]string{{"원가"}, {"입고단가"}, {"매입단가"}}},
	{field: FieldUnitPrice, alternatives: [][]string{{"단가"}}},
	{field: FieldQuantity, alternatives: [][]string{{"수량"}}},
	{field: FieldSalesAmount, alternatives: [][]string{{"판매", "금액"}, {"매출", "금액"}, {"공급가액"}, {"합계금액"}}},
	{field: FieldChannel, alternatives: [][]string{{"거래처"}, {"판매처"}, {"채널"}, {"쇼핑몰"}}, exclude: []string{"코드"}},
	{field: FieldProduct, alternatives: [][]string{{"품목"}, {"품명"}, {"상품"}}, exclude: []string{"코드"}},
}

func (r fieldRule) matches(name string) bool {
	for _, ex := range r.exclude {
		if strings.Contains(name, ex) {
			return false
		}
	}
	for _, alt := range r.alternatives {
		if containsAll(name, alt) {
			return true
		}
	}
	return false
}

func containsAll(s string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	return true
}

// MapColumns assigns canonical fields to column names. Matching is case-sensitive
// substring containment; the first rule wins per column and the first column wins per field.
func MapColumns(columns []string) FieldMap {
	mapping := make(FieldMap)
	for i, name := range columns {
		name = compact(name)
		if name == "" {
			continue
		}
		for _, rule := range fieldRules {
			if !rule.matches(name) {
				continue
			}
			if _, taken := mapping[rule.field]; !taken {
				mapping[rule.field] = i
			}
			break
		}
	}
	return mapping
}

// compact removes all whitespace.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func hasFieldToken(name string) bool {
	name = compact(name)
	for _, rule := range fieldRules {
		if rule.matches(name) {
			return true
		}
	}
	return false
}
