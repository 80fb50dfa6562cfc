package snapshot

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Role string

const (
	RoleItemID      Role = "item_id"
	RoleBarcode     Role = "barcode"
	RoleDescription Role = "description"
	RoleGroup       Role = "group"
	RoleUnit        Role = "unit"
	RoleQuantity    Role = "quantity"
)

// ColumnRule claims a column for Role when Match accepts its normalized header.
type ColumnRule struct {
	Role  Role
	Match func(header string) bool
}

// DefaultRules are evaluated in order; the first matching rule decides the role.
// Barcode comes before item id so "codigo de barras" is never read as an item code.
var DefaultRules = []ColumnRule{
	{RoleBarcode, anyOf(contains("barra", "barcode", "ean", "upc", "gtin"))},
	{RoleQuantity, anyOf(hasToken("cantidad", "cant", "qty", "quantity", "existencia", "existencias", "stock", "saldo", "teorico", "inventario"))},
	{RoleUnit, anyOf(hasToken("unidad", "um", "uom", "unit", "medida", "presentacion", "empaque"))},
	{RoleDescription, anyOf(hasToken("descripcion", "description", "desc", "nombre", "name", "producto"))},
	{RoleGroup, anyOf(hasToken("grupo", "group", "categoria", "category", "linea", "familia"))},
	{RoleItemID, anyOf(hasToken("item", "items", "codigo", "cod", "sku", "referencia", "ref", "id", "articulo"))},
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader lowercases, strips accents and collapses separators to single spaces.
func NormalizeHeader(header string) string {
	folded, _, err := transform.String(accentStripper, header)
	if err != nil {
		folded = header
	}
	folded = strings.ToLower(folded)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// Columns maps each claimed role to its column index.
type Columns map[Role]int

func (c Columns) Has(role Role) bool {
	_, ok := c[role]
	return ok
}

// Value returns the trimmed cell for role, or "" when the role or cell is missing.
func (c Columns) Value(row []string, role Role) string {
	i, ok := c[role]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Classify assigns roles to headers. The first column claiming a role keeps it.
func Classify(headers []string, rules []ColumnRule) Columns {
	if rules == nil {
		rules = DefaultRules
	}
	cols := Columns{}
	for i, raw := range headers {
		h := NormalizeHeader(raw)
		if h == "" {
			continue
		}
		for _, rule := range rules {
			if !rule.Match(h) {
				continue
			}
			if !cols.Has(rule.Role) {
				cols[rule.Role] = i
			}
			break
		}
	}
	return cols
}

func anyOf(matchers ...func(string) bool) func(string) bool {
	return func(h string) bool {
		for _, m := range matchers {
			if m(h) {
				return true
			}
		}
		return false
	}
}

func contains(parts ...string) func(string) bool {
	return func(h string) bool {
		for _, p := range parts {
			if strings.Contains(h, p) {
				return true
			}
		}
		return false
	}
}

func hasToken(tokens ...string) func(string) bool {
	return func(h string) bool {
		for _, f := range strings.Fields(h) {
			for _, t := range tokens {
				if f == t {
					return true
				}
			}
		}
		return false
	}
}
