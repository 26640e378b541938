package bilancio

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrFormulaNonValida = errors.New("invalid formula")

// Valuta evaluates a formula made of template codes joined by + and -,
// strictly left to right. Codes missing from valori count as 0. Spaces are
// ignored and a leading sign applies to the first term.
func Valuta(formula string, valori map[string]decimal.Decimal) (decimal.Decimal, error) {
	expr := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, formula)
	if expr == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrFormulaNonValida)
	}

	totale := decimal.Zero
	segno := 1
	var codice strings.Builder

	applica := func() error {
		if codice.Len() == 0 {
			return fmt.Errorf("%w: missing term in %q", ErrFormulaNonValida, formula)
		}
		v := valori[codice.String()]
		if segno < 0 {
			v = v.Neg()
		}
		totale = totale.Add(v)
		codice.Reset()
		return nil
	}

	for i, r := range expr {
		switch r {
		case '+', '-':
			if i == 0 {
				if r == '-' {
					segno = -1
				}
				continue
			}
			if err := applica(); err != nil {
				return decimal.Zero, err
			}
			segno = 1
			if r == '-' {
				segno = -1
			}
		default:
			codice.WriteRune(r)
		}
	}
	if err := applica(); err != nil {
		return decimal.Zero, err
	}
	return totale, nil
}
