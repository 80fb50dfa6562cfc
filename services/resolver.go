package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const (
	MatchedByBarcode = "barcode"
	MatchedByItemID  = "item_id"

	maxCandidates = 20
)

// Resolution is a scanned code resolved to an item and its pack sizes.
type Resolution struct {
	Item           models.Item          `json:"item"`
	Units          []models.BarcodeUnit `json:"units"`
	DefaultBarcode string               `json:"default_barcode"`
	DefaultUnit    string               `json:"default_unit"`
	MatchedBy      string               `json:"matched_by"`
}

// HasUnit reports whether unit is one of the item's active pack sizes.
// Items without barcodes only accept the base unit.
func (r *Resolution) HasUnit(unit string) bool {
	unit = normalizeUnit(unit)
	if len(r.Units) == 0 {
		return unit == BaseUnit
	}
	for _, u := range r.Units {
		if normalizeUnit(u.UnitOfMeasure) == unit {
			return true
		}
	}
	return false
}

type ProductResolver struct {
	catalog   CatalogLookup
	threshold float64
	log       *zap.Logger
}

func NewProductResolver(catalog CatalogLookup, threshold float64, log *zap.Logger) *ProductResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductResolver{catalog: catalog, threshold: threshold, log: log}
}

// Resolve runs the cascade: exact active barcode, then active item code,
// then fuzzy barcode similarity. Fuzzy hits are never auto-selected.
func (r *ProductResolver) Resolve(ctx context.Context, scannedCode string) (*Resolution, error) {
	code := strings.TrimSpace(scannedCode)
	if code == "" {
		return nil, invalid("scanned_code", "must not be blank")
	}

	barcode, err := r.catalog.FindActiveBarcode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup barcode %q: %w", code, err)
	}
	if barcode != nil {
		item, err := r.catalog.FindActiveItem(ctx, barcode.ItemID)
		if err != nil {
			return nil, fmt.Errorf("lookup item %q: %w", barcode.ItemID, err)
		}
		if item != nil {
			return r.resolution(ctx, *item, code, MatchedByBarcode)
		}
		r.log.Debug("barcode points to inactive item", zap.String("barcode", code), zap.String("item_id", barcode.ItemID))
	}

	item, err := r.catalog.FindActiveItem(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup item %q: %w", code, err)
	}
	if item != nil {
		return r.resolution(ctx, *item, "", MatchedByItemID)
	}

	candidates, err := r.similar(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return nil, &AmbiguousMatchError{Code: code, Candidates: candidates}
	}
	return nil, notFound("product", code)
}

func (r *ProductResolver) resolution(ctx context.Context, item models.Item, scanned, matchedBy string) (*Resolution, error) {
	units, err := r.catalog.ActiveUnits(ctx, item.ItemID)
	if err != nil {
		return nil, fmt.Errorf("load units for %q: %w", item.ItemID, err)
	}
	res := &Resolution{Item: item, Units: units, DefaultUnit: BaseUnit, MatchedBy: matchedBy}
	if len(units) == 0 {
		return res, nil
	}
	def := units[0]
	for _, u := range units {
		if u.Barcode == scanned {
			def = u
			break
		}
	}
	res.DefaultBarcode = def.Barcode
	if unit := normalizeUnit(def.UnitOfMeasure); unit != "" {
		res.DefaultUnit = unit
	}
	return res, nil
}

// similar scores active barcodes in the length window a similarity >= threshold allows.
func (r *ProductResolver) similar(ctx context.Context, code string) ([]Candidate, error) {
	n := utf8.RuneCountInString(code)
	minLen, maxLen := 0, math.MaxInt32
	if r.threshold > 0 {
		minLen = int(math.Ceil(r.threshold * float64(n)))
		maxLen = int(math.Floor(float64(n) / r.threshold))
	}
	pool, err := r.catalog.BarcodesByLength(ctx, minLen, maxLen)
	if err != nil {
		return nil, fmt.Errorf("load fuzzy pool: %w", err)
	}

	metric := metrics.NewLevenshtein()
	var out []Candidate
	for _, b := range pool {
		score := strutil.Similarity(code, b.Barcode, metric)
		if score < r.threshold {
			continue
		}
		out = append(out, Candidate{
			Barcode:       b.Barcode,
			ItemID:        b.ItemID,
			UnitOfMeasure: normalizeUnit(b.UnitOfMeasure),
			Score:         math.Round(score*1000) / 1000,
		})
	}
	slices.SortFunc(out, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.Barcode, b.Barcode)
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	r.log.Debug("fuzzy lookup", zap.String("code", code), zap.Int("pool", len(pool)), zap.Int("candidates", len(out)))
	return out, nil
}
