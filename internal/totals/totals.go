// Package totals computes line and document amounts (HT / TVA / TTC)
// for quotes, invoices and credit notes. All functions are pure and
// deterministic; invalid numeric input is coerced to zero rather than
// propagated, so callers always get renderable amounts.
package totals

import "math"

// DefaultTVATaux is applied when a line carries no explicit rate.
const DefaultTVATaux = 20.0

// Line is one document line. Montant fields are derived — never source
// of truth — and recomputed on every edit.
type Line struct {
	ArticleID      uint    `json:"article_id,omitempty"`
	Designation    string  `json:"designation"`
	Quantite       float64 `json:"quantite"`
	PrixUnitaireHT float64 `json:"prix_unitaire_ht"`
	TVATaux        float64 `json:"tva_taux"`        // percentage, 0..100 (5.5 allowed)
	RemisePourcent float64 `json:"remise_pourcent"` // percentage, 0..100
	MontantHT      float64 `json:"montant_ht"`
	MontantTVA     float64 `json:"montant_tva"`
	MontantTTC     float64 `json:"montant_ttc"`
}

// Totals aggregates a document's amounts.
type Totals struct {
	HT  float64 `json:"total_ht"`
	TVA float64 `json:"total_tva"`
	TTC float64 `json:"total_ttc"`
}

// Article is the catalog view a line can be bound to. When bound, unit
// price and TVA rate come from the article and are not hand-editable;
// only quantity and discount remain free.
type Article interface {
	UnitPriceHT() float64
	TVARate() float64
	Label() string
}

// ComputeLine fills defaults, sanitizes input and derives the montant
// fields. Rounding is half-away-from-zero to 2 decimals, applied once
// per derived field, never on intermediates. TTC is the sum of the two
// already-rounded components, not independently rounded.
func ComputeLine(in Line) Line {
	out := in
	out.Quantite = sanitize(in.Quantite)
	out.PrixUnitaireHT = sanitize(in.PrixUnitaireHT)
	out.RemisePourcent = clampPercent(sanitize(in.RemisePourcent))
	out.TVATaux = sanitize(in.TVATaux)
	if in.TVATaux == 0 && !explicitZero(in) {
		out.TVATaux = DefaultTVATaux
	}
	out.TVATaux = clampPercent(out.TVATaux)

	out.MontantHT = Round2(out.PrixUnitaireHT * out.Quantite * (1 - out.RemisePourcent/100))
	out.MontantTVA = Round2(out.MontantHT * out.TVATaux / 100)
	out.MontantTTC = out.MontantHT + out.MontantTVA
	return out
}

// Aggregate sums already-rounded line amounts and re-rounds each sum
// to guard against float drift across many lines. Insertion order does
// not matter.
func Aggregate(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.HT += l.MontantHT
		t.TVA += l.MontantTVA
		t.TTC += l.MontantTTC
	}
	t.HT = Round2(t.HT)
	t.TVA = Round2(t.TVA)
	t.TTC = Round2(t.TTC)
	return t
}

// ApplyArticle binds a line to a catalog article: price and rate are
// overwritten from the article's current values and the line is
// recomputed. Quantity and discount are preserved.
func ApplyArticle(line Line, art Article) Line {
	line.PrixUnitaireHT = art.UnitPriceHT()
	line.TVATaux = art.TVARate()
	if line.Designation == "" {
		line.Designation = art.Label()
	}
	return ComputeLine(line)
}

// Detach unbinds a line from its article, restoring manual editing of
// price and rate. Amounts stay as last computed.
func Detach(line Line) Line {
	line.ArticleID = 0
	return line
}

// Round2 rounds to 2 decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// sanitize coerces NaN, infinities and negatives to 0 — form input can
// produce any of these and totals must stay renderable.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func clampPercent(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

// explicitZero reports whether the zero TVA rate looks intentional: a
// line bound to an article keeps the article's rate even when it is 0.
func explicitZero(in Line) bool {
	return in.ArticleID != 0
}
