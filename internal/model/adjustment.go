package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AdjustmentKind selects how an adjustment's value is interpreted.
type AdjustmentKind string

const (
	AdjustInstruction AdjustmentKind = "instruction"
	AdjustStyle       AdjustmentKind = "style"
	AdjustTerminology AdjustmentKind = "terminology"
	AdjustTemperature AdjustmentKind = "temperature"
	AdjustMaxTokens   AdjustmentKind = "max_tokens"
)

// Bounds for the numeric overrides.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 8192
)

// AdjustmentValue is the tagged union behind Adjustment.Value. Each kind has
// exactly one concrete type, so callers switch on the type instead of
// re-parsing free text.
type AdjustmentValue interface {
	Kind() AdjustmentKind
	String() string
}

// TextDirective carries free-form guidance for the instruction, style and
// terminology kinds.
type TextDirective struct {
	K    AdjustmentKind
	Text string
}

func (d TextDirective) Kind() AdjustmentKind { return d.K }
func (d TextDirective) String() string       { return d.Text }

// TemperatureOverride replaces the sampling temperature of a generation.
type TemperatureOverride struct {
	Value float64
}

func (TemperatureOverride) Kind() AdjustmentKind { return AdjustTemperature }
func (o TemperatureOverride) String() string {
	return strconv.FormatFloat(o.Value, 'f', -1, 64)
}

// MaxTokensOverride replaces the completion length limit of a generation.
type MaxTokensOverride struct {
	Value int
}

func (MaxTokensOverride) Kind() AdjustmentKind { return AdjustMaxTokens }
func (o MaxTokensOverride) String() string     { return strconv.Itoa(o.Value) }

// ParseAdjustmentValue validates raw text for the given kind and returns the
// matching concrete value. This is the only place adjustment text is parsed.
func ParseAdjustmentValue(kind AdjustmentKind, raw string) (AdjustmentValue, error) {
	raw = strings.TrimSpace(raw)

	switch kind {
	case AdjustInstruction, AdjustStyle, AdjustTerminology:
		if raw == "" {
			return nil, fmt.Errorf("%s adjustment needs a non-empty value", kind)
		}
		return TextDirective{K: kind, Text: raw}, nil

	case AdjustTemperature:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("temperature must be a number, got %q", raw)
		}
		if v < MinTemperature || v > MaxTemperature {
			return nil, fmt.Errorf("temperature must be between %g and %g", MinTemperature, MaxTemperature)
		}
		return TemperatureOverride{Value: v}, nil

	case AdjustMaxTokens:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("max_tokens must be an integer, got %q", raw)
		}
		if v < MinMaxTokens || v > MaxMaxTokens {
			return nil, fmt.Errorf("max_tokens must be between %d and %d", MinMaxTokens, MaxMaxTokens)
		}
		return MaxTokensOverride{Value: v}, nil
	}

	return nil, fmt.Errorf("unknown adjustment kind %q", kind)
}

// Adjustment is a named, prioritised directive. A nil Category applies to
// every generation type; a nil OwnerID marks a system-wide adjustment.
type Adjustment struct {
	ID        string
	Key       string
	Value     AdjustmentValue
	Category  *Category
	OwnerID   *string
	Active    bool
	Priority  int
	CreatedAt time.Time
}

// Kind is shorthand for a.Value.Kind().
func (a *Adjustment) Kind() AdjustmentKind {
	if a.Value == nil {
		return ""
	}
	return a.Value.Kind()
}

// AppliesTo reports whether the adjustment is in effect for category c.
func (a *Adjustment) AppliesTo(c Category) bool {
	return a.Active && (a.Category == nil || *a.Category == c)
}

type adjustmentJSON struct {
	ID        string         `json:"id"`
	Kind      AdjustmentKind `json:"kind"`
	Key       string         `json:"key"`
	Value     string         `json:"value"`
	Category  *Category      `json:"type"`
	OwnerID   *string        `json:"ownerId"`
	Active    bool           `json:"active"`
	Priority  int            `json:"priority"`
	CreatedAt time.Time      `json:"createdAt"`
}

// MarshalJSON flattens the tagged value into {"kind": ..., "value": ...}.
func (a Adjustment) MarshalJSON() ([]byte, error) {
	out := adjustmentJSON{
		ID:        a.ID,
		Kind:      a.Kind(),
		Key:       a.Key,
		Category:  a.Category,
		OwnerID:   a.OwnerID,
		Active:    a.Active,
		Priority:  a.Priority,
		CreatedAt: a.CreatedAt,
	}
	if a.Value != nil {
		out.Value = a.Value.String()
	}
	return json.Marshal(out)
}
