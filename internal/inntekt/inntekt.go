// Package inntekt models the income record returned by dp-inntekt-api.
package inntekt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Inntekt is an income record. It is treated as immutable once decoded.
type Inntekt struct {
	InntektsID                    string                     `json:"inntektsId"`
	InntektsListe                 []KlassifisertInntektManed `json:"inntektsListe"`
	ManueltRedigert               *bool                      `json:"manueltRedigert,omitempty"`
	SisteAvsluttendeKalenderManed *YearMonth                 `json:"sisteAvsluttendeKalenderMåned,omitempty"`
}

// KlassifisertInntektManed holds the classified amounts of one month.
type KlassifisertInntektManed struct {
	ArManed                YearMonth             `json:"årMåned"`
	KlassifiserteInntekter []KlassifisertInntekt `json:"klassifiserteInntekter"`
}

// KlassifisertInntekt is a single amount tagged with its class.
type KlassifisertInntekt struct {
	Belop         Amount        `json:"beløp"`
	InntektKlasse InntektKlasse `json:"inntektKlasse"`
}

// Validate checks the record is usable by downstream stages.
func (i *Inntekt) Validate() error {
	if i.InntektsID == "" {
		return fmt.Errorf("inntekt: missing inntektsId")
	}
	for _, m := range i.InntektsListe {
		if m.ArManed.IsZero() {
			return fmt.Errorf("inntekt %s: month without årMåned", i.InntektsID)
		}
		for _, k := range m.KlassifiserteInntekter {
			if !k.InntektKlasse.Valid() {
				return fmt.Errorf("inntekt %s: unknown inntektKlasse %q in %s", i.InntektsID, k.InntektKlasse, m.ArManed)
			}
		}
	}
	return nil
}

// ByMonth returns the months in chronological order. The record itself keeps the
// order it was delivered in; months with equal keys keep their relative order.
func (i *Inntekt) ByMonth() []KlassifisertInntektManed {
	months := make([]KlassifisertInntektManed, len(i.InntektsListe))
	copy(months, i.InntektsListe)
	sort.SliceStable(months, func(a, b int) bool {
		return months[a].ArManed.Before(months[b].ArManed)
	})
	return months
}

// Total sums every amount of the given classes, or of all classes when none are given.
func (i *Inntekt) Total(klasser ...InntektKlasse) *big.Rat {
	want := make(map[InntektKlasse]bool, len(klasser))
	for _, k := range klasser {
		want[k] = true
	}
	sum := new(big.Rat)
	for _, m := range i.InntektsListe {
		for _, k := range m.KlassifiserteInntekter {
			if len(want) > 0 && !want[k.InntektKlasse] {
				continue
			}
			if r, ok := k.Belop.Rat(); ok {
				sum.Add(sum, r)
			}
		}
	}
	return sum
}

// InntektKlasse is the class of an amount.
type InntektKlasse string

const (
	Arbeidsinntekt        InntektKlasse = "ARBEIDSINNTEKT"
	Dagpenger             InntektKlasse = "DAGPENGER"
	DagpengerFangstFiske  InntektKlasse = "DAGPENGER_FANGST_FISKE"
	SykepengerFangstFiske InntektKlasse = "SYKEPENGER_FANGST_FISKE"
	FangstFiske           InntektKlasse = "FANGST_FISKE"
	Sykepenger            InntektKlasse = "SYKEPENGER"
	Tiltakslonn           InntektKlasse = "TILTAKSLØNN"
)

// Klasser lists every known class.
var Klasser = []InntektKlasse{
	Arbeidsinntekt,
	Dagpenger,
	DagpengerFangstFiske,
	SykepengerFangstFiske,
	FangstFiske,
	Sykepenger,
	Tiltakslonn,
}

// Valid reports whether k is a known class.
func (k InntektKlasse) Valid() bool {
	for _, known := range Klasser {
		if k == known {
			return true
		}
	}
	return false
}

// YearMonth is a calendar month, encoded as "YYYY-MM".
type YearMonth struct {
	Year  int
	Month time.Month
}

const yearMonthLayout = "2006-01"

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid year-month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// IsZero reports whether ym is unset.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// Before reports whether ym is earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(ym.String())
}

func (ym *YearMonth) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("year-month must be a string: %w", err)
	}
	parsed, err := ParseYearMonth(s)
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// Amount is a decimal amount. The literal from the wire is kept so it is
// re-encoded exactly as received.
type Amount struct {
	literal string
}

var decimalLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// NewAmount validates s as a decimal literal.
func NewAmount(s string) (Amount, error) {
	if !decimalLiteral.MatchString(s) {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return Amount{literal: s}, nil
}

// MustAmount is NewAmount that panics on invalid input.
func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) String() string {
	if a.literal == "" {
		return "0"
	}
	return a.literal
}

// Rat returns the exact value.
func (a Amount) Rat() (*big.Rat, bool) {
	return new(big.Rat).SetString(a.String())
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid amount %s: %w", s, err)
		}
		s = unq
	}
	parsed, err := NewAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
