// internal/stages/technical/signature.go

// Package technical implements the analysis stage: extract a structured
// requirement signature from each RFP line item and score catalog products
// against it.
package technical

import (
	"regexp"
	"strconv"
	"strings"
)

// Signature is the structured requirement extracted from free text. Nil
// pointer / empty string fields mean the attribute was not detected and is
// excluded from scoring entirely.
type Signature struct {
	Voltage     string
	Insulation  string
	Cores       *float64
	SizeSqmm    *float64
	Conductor   string
	Armour      bool // only meaningful when ArmourSet
	ArmourSet   bool
	CableType   string
	Application string
}

// SetCount returns how many attributes were detected.
func (s *Signature) SetCount() int {
	n := 0
	if s.Voltage != "" {
		n++
	}
	if s.Insulation != "" {
		n++
	}
	if s.Cores != nil {
		n++
	}
	if s.SizeSqmm != nil {
		n++
	}
	if s.Conductor != "" {
		n++
	}
	if s.ArmourSet {
		n++
	}
	if s.CableType != "" {
		n++
	}
	if s.Application != "" {
		n++
	}
	return n
}

var (
	coresPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*c(?:ore)?\b`)
	sizePattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*sqmm`)
)

// voltage classes are matched as literal tokens, most specific first
var voltageClasses = []struct {
	tokens []string
	value  string
}{
	{tokens: []string{"11 kv", "11kv"}, value: "11 kV"},
	{tokens: []string{"1.1 kv", "1.1kv"}, value: "1.1 kV"},
	{tokens: []string{"450/750"}, value: "450/750 V"},
	{tokens: []string{"300/500"}, value: "300/500 V"},
}

var insulationVocab = []string{"xlpe", "pvc", "fr-lsh", "rubber", "pe"}

var cableTypes = []string{"power", "control", "instrumentation", "flexible"}

// ExtractSignature parses a requirement description into a Signature using
// fixed pattern rules. Case-insensitive; undetected attributes stay unset.
func ExtractSignature(requirement string) Signature {
	lower := strings.ToLower(requirement)
	sig := Signature{}

	for _, vc := range voltageClasses {
		for _, token := range vc.tokens {
			if strings.Contains(lower, token) {
				sig.Voltage = vc.value
				break
			}
		}
		if sig.Voltage != "" {
			break
		}
	}

	// First vocabulary hit wins, so "xlpe" is never shadowed by "pe"
	for _, ins := range insulationVocab {
		if strings.Contains(lower, ins) {
			sig.Insulation = strings.ToUpper(ins)
			break
		}
	}

	if m := coresPattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			sig.Cores = &v
		}
	}

	if m := sizePattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			sig.SizeSqmm = &v
		}
	}

	if strings.Contains(lower, "copper") {
		sig.Conductor = "copper"
	} else if strings.Contains(lower, "aluminium") || strings.Contains(lower, "aluminum") {
		sig.Conductor = "aluminium"
	}

	if strings.Contains(lower, "armour") || strings.Contains(lower, "armored") {
		sig.Armour = true
		sig.ArmourSet = true
	}

	for _, ct := range cableTypes {
		if strings.Contains(lower, ct) {
			sig.CableType = ct
			break
		}
	}

	if strings.Contains(lower, "underground") {
		sig.Application = "underground"
	} else if strings.Contains(lower, "overhead") {
		sig.Application = "overhead"
	}

	return sig
}
