package services

import "strings"

// BaseUnit is the unit every pack size converts to.
const BaseUnit = "UND"

// unitMultipliers is the closed table of pack sizes.
var unitMultipliers = map[string]int{
	"UND":  1,
	"UN":   1,
	"KG":   1,
	"LB":   1,
	"X2":   2,
	"X3":   3,
	"X4":   4,
	"X5":   5,
	"X6":   6,
	"MED":  6,
	"X8":   8,
	"X10":  10,
	"X12":  12,
	"DOC":  12,
	"X15":  15,
	"X20":  20,
	"X24":  24,
	"X25":  25,
	"X30":  30,
	"X36":  36,
	"X48":  48,
	"X50":  50,
	"X100": 100,
}

func normalizeUnit(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// UnitMultiplier converts a unit code to base units. Unknown codes count as 1.
func UnitMultiplier(code string) int {
	if m, ok := unitMultipliers[normalizeUnit(code)]; ok {
		return m
	}
	return 1
}

// KnownUnit reports whether code belongs to the fixed unit table.
func KnownUnit(code string) bool {
	_, ok := unitMultipliers[normalizeUnit(code)]
	return ok
}
