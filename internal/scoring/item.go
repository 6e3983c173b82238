package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// CategorySeparator splits an item's category field into tags.
const CategorySeparator = "|"

// Record field names accepted by ItemFromRecord.
const (
	FieldRelevance    = "relevance"
	FieldCreatorScore = "creator_score"
	FieldEngagement   = "engagement"
	FieldMisinfo      = "misinfo"
	FieldPolarization = "polarization"
	FieldCategory     = "category"
)

// Item carries the precomputed attributes of one recommendable item.
// Absent numeric attributes are zero; an absent category is "".
type Item struct {
	Relevance    float64 `json:"relevance"`
	CreatorScore float64 `json:"creator_score"`
	Engagement   float64 `json:"engagement"`
	Misinfo      float64 `json:"misinfo"`
	Polarization float64 `json:"polarization"`
	Category     string  `json:"category"`
}

// Slate is a set of items recommended together. Order is irrelevant to
// every metric computed over it.
type Slate []Item

// FieldError reports an item attribute that could not be used as a number.
type FieldError struct {
	Index int // position of the item in its slate, -1 when unknown
	Field string
	Value any
}

func (e *FieldError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("item %d: field %q: invalid value %v (%T)", e.Index, e.Field, e.Value, e.Value)
	}
	return fmt.Sprintf("field %q: invalid value %v (%T)", e.Field, e.Value, e.Value)
}

// Tags returns the set of category tags. An empty category yields the
// single empty tag so that two uncategorised items compare as identical.
func (it Item) Tags() map[string]struct{} {
	parts := strings.Split(it.Category, CategorySeparator)
	tags := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		tags[p] = struct{}{}
	}
	return tags
}

// Validate rejects NaN and infinite attributes.
func (it Item) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{FieldRelevance, it.Relevance},
		{FieldCreatorScore, it.CreatorScore},
		{FieldEngagement, it.Engagement},
		{FieldMisinfo, it.Misinfo},
		{FieldPolarization, it.Polarization},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &FieldError{Index: -1, Field: f.name, Value: f.v}
		}
	}
	return nil
}

// Validate checks every item in the slate.
func (s Slate) Validate() error {
	for i, it := range s {
		if err := it.Validate(); err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				fe.Index = i
				return fe
			}
			return err
		}
	}
	return nil
}

// ItemFromRecord converts a loosely typed record (for example a decoded JSON
// object) into an Item. Unknown keys are ignored.
func ItemFromRecord(rec map[string]any) (Item, error) {
	var it Item
	numeric := []struct {
		name string
		dst  *float64
	}{
		{FieldRelevance, &it.Relevance},
		{FieldCreatorScore, &it.CreatorScore},
		{FieldEngagement, &it.Engagement},
		{FieldMisinfo, &it.Misinfo},
		{FieldPolarization, &it.Polarization},
	}
	for _, f := range numeric {
		raw, ok := rec[f.name]
		if !ok || raw == nil {
			continue
		}
		v, ok := toFloat(raw)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return Item{}, &FieldError{Index: -1, Field: f.name, Value: raw}
		}
		*f.dst = v
	}

	switch c := rec[FieldCategory].(type) {
	case nil:
	case string:
		it.Category = c
	case map[string]any, []any:
		return Item{}, &FieldError{Index: -1, Field: FieldCategory, Value: c}
	default:
		it.Category = fmt.Sprint(c)
	}
	return it, nil
}

// SlateFromRecords converts every record, reporting the first bad item.
func SlateFromRecords(recs []map[string]any) (Slate, error) {
	slate := make(Slate, 0, len(recs))
	for i, rec := range recs {
		it, err := ItemFromRecord(rec)
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				fe.Index = i
			}
			return nil, err
		}
		slate = append(slate, it)
	}
	return slate, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
