// internal/stages/technical/matcher.go
package technical

import (
	"math"
	"sort"
	"strings"

	"rfp-workers/internal/models"
)

const topMatchCount = 3

// Close-match tolerances.
const (
	coreTolerance         = 2.0
	sizeRelativeTolerance = 0.25
)

// Match scores every catalog product against the requirement text and
// returns the top 3 by descending match percentage, stable on catalog
// order for exact ties. If no requirement attributes could be extracted it
// returns an empty list rather than failing.
func Match(requirement string, catalog []models.Product) []models.MatchResult {
	sig := ExtractSignature(requirement)
	if sig.SetCount() == 0 {
		return nil
	}

	results := make([]models.MatchResult, 0, len(catalog))
	for i := range catalog {
		results = append(results, scoreProduct(&sig, &catalog[i]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchPercent > results[j].MatchPercent
	})

	if len(results) > topMatchCount {
		results = results[:topMatchCount]
	}
	return results
}

// scoreProduct awards 1.0 per exact criterion match and 0.5 per close
// match. Every set requirement attribute counts in the denominator; a
// product that carries no data for one scores it as a miss, so sparsely
// documented products cannot outrank a fully matching one.
func scoreProduct(sig *Signature, product *models.Product) models.MatchResult {
	score := 0.0
	criteria := 0
	var verdicts []models.CriterionVerdict

	record := func(criterion string, verdict models.Verdict, points float64) {
		criteria++
		score += points
		verdicts = append(verdicts, models.CriterionVerdict{Criterion: criterion, Verdict: verdict})
	}

	if sig.Voltage != "" {
		if grade, ok := product.SpecString("voltage_grade"); ok && strings.EqualFold(grade, sig.Voltage) {
			record("voltage", models.VerdictExact, 1.0)
		} else {
			record("voltage", models.VerdictMiss, 0)
		}
	}

	if sig.Insulation != "" {
		if product.SpecContains("insulation", sig.Insulation) {
			record("insulation", models.VerdictExact, 1.0)
		} else {
			record("insulation", models.VerdictMiss, 0)
		}
	}

	if sig.Cores != nil {
		cores, ok := product.SpecFloat("cores")
		switch {
		case !ok:
			record("cores", models.VerdictMiss, 0)
		case cores == *sig.Cores:
			record("cores", models.VerdictExact, 1.0)
		case math.Abs(cores-*sig.Cores) <= coreTolerance:
			record("cores", models.VerdictPartial, 0.5)
		default:
			record("cores", models.VerdictMiss, 0)
		}
	}

	if sig.SizeSqmm != nil {
		size, ok := product.SpecFloat("conductor_size_sqmm")
		switch {
		case !ok:
			record("size", models.VerdictMiss, 0)
		case size == *sig.SizeSqmm:
			record("size", models.VerdictExact, 1.0)
		case math.Abs(size-*sig.SizeSqmm) / *sig.SizeSqmm <= sizeRelativeTolerance:
			record("size", models.VerdictPartial, 0.5)
		default:
			record("size", models.VerdictMiss, 0)
		}
	}

	if sig.Conductor != "" {
		if product.SpecContains("conductor_material", sig.Conductor) {
			record("conductor", models.VerdictExact, 1.0)
		} else {
			record("conductor", models.VerdictMiss, 0)
		}
	}

	if sig.ArmourSet {
		if armoured, known := productArmour(product); known && armoured == sig.Armour {
			record("armour", models.VerdictExact, 1.0)
		} else {
			record("armour", models.VerdictMiss, 0)
		}
	}

	if sig.CableType != "" {
		if strings.Contains(strings.ToLower(product.Category), sig.CableType) {
			record("cable_type", models.VerdictExact, 1.0)
		} else {
			record("cable_type", models.VerdictMiss, 0)
		}
	}

	if sig.Application != "" {
		if product.SpecContains("application", sig.Application) {
			record("application", models.VerdictExact, 1.0)
		} else {
			record("application", models.VerdictMiss, 0)
		}
	}

	percent := 0.0
	if criteria > 0 {
		percent = score / float64(criteria) * 100
	}

	return models.MatchResult{
		SKU:          product.SKU,
		MatchPercent: percent,
		Verdicts:     verdicts,
		Product:      product,
	}
}

// productArmour resolves the armour attribute from either an explicit spec
// flag or an "armoured" mention in the category.
func productArmour(product *models.Product) (armoured, known bool) {
	if b, ok := product.SpecBool("armoured"); ok {
		return b, true
	}
	if b, ok := product.SpecBool("armour"); ok {
		return b, true
	}
	category := strings.ToLower(product.Category)
	if strings.Contains(category, "armoured") || strings.Contains(category, "armored") {
		return true, true
	}
	return false, false
}

// Feasibility grades an analysis by the average top-match percentage
// across line items.
func Feasibility(lineItems []models.LineItemAnalysis) string {
	if len(lineItems) == 0 {
		return models.FeasibilityLow
	}

	total := 0.0
	for _, li := range lineItems {
		if len(li.TopMatches) > 0 {
			total += li.TopMatches[0].MatchPercent
		}
	}
	avg := total / float64(len(lineItems))

	switch {
	case avg >= 90:
		return models.FeasibilityHigh
	case avg >= 70:
		return models.FeasibilityMedium
	default:
		return models.FeasibilityLow
	}
}
