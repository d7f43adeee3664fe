package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// lineWidth keeps LP files below the 255 character limit some readers have.
const lineWidth = 200

// WriteLP writes m in CPLEX LP format. Constant terms of constraints are
// moved to the right-hand side; the objective constant is dropped and must
// be added back by the caller.
func WriteLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	lw := &lpWriter{w: bw}

	lw.printf("\\ %s\n", m.Name)
	lw.printf("Minimize\n obj:")
	if len(m.Objective.Terms) == 0 && len(m.Vars) > 0 {
		lw.printf(" 0 %s", m.Vars[0].Name)
	}
	lw.terms(m, m.Objective.Terms)
	lw.printf("\nSubject To\n")
	for _, c := range m.Constraints {
		if len(c.Expr.Terms) == 0 {
			if len(m.Vars) == 0 {
				return fmt.Errorf("constraint %s has no terms", c.Name)
			}
			lw.printf(" %s: 0 %s", c.Name, m.Vars[0].Name)
		} else {
			lw.printf(" %s:", c.Name)
			lw.terms(m, c.Expr.Terms)
		}
		lw.printf(" %s %s\n", c.Sense, num(c.RHS-c.Expr.Const))
	}
	lw.printf("Bounds\n")
	for _, v := range m.Vars {
		if v.Kind == Binary {
			continue
		}
		lw.printf(" %s <= %s <= %s\n", bound(v.Lower), v.Name, bound(v.Upper))
	}
	bin := 0
	for _, v := range m.Vars {
		if v.Kind != Binary {
			continue
		}
		if bin == 0 {
			lw.printf("Binaries\n")
		}
		lw.printf(" %s\n", v.Name)
		bin++
	}
	lw.printf("End\n")
	if lw.err != nil {
		return lw.err
	}
	return bw.Flush()
}

type lpWriter struct {
	w   *bufio.Writer
	col int
	err error
}

func (l *lpWriter) printf(format string, args ...any) {
	if l.err != nil {
		return
	}
	s := fmt.Sprintf(format, args...)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		l.col = len(s) - i - 1
	} else {
		l.col += len(s)
	}
	_, l.err = l.w.WriteString(s)
}

func (l *lpWriter) terms(m *Model, terms []Term) {
	for _, t := range terms {
		if l.col > lineWidth {
			l.printf("\n  ")
		}
		sign := "+"
		coef := t.Coef
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		l.printf(" %s %s %s", sign, num(coef), m.Vars[t.Var].Name)
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func bound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return num(v)
}
