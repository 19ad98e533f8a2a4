package performance

import "strings"

// Benchmark is one industry's reference CTR (%), CPC and conversion rate (%).
type Benchmark struct {
	CTR            float64
	CPC            float64
	ConversionRate float64
}

// DefaultIndustry is the row used for unknown or empty industries.
const DefaultIndustry = "default"

// Benchmarks maps a lowercased industry to its benchmark row.
type Benchmarks map[string]Benchmark

// DefaultBenchmarks returns the built-in table.
func DefaultBenchmarks() Benchmarks {
	return Benchmarks{
		"technology":    {CTR: 2.09, CPC: 3.80, ConversionRate: 2.92},
		"ecommerce":     {CTR: 2.69, CPC: 1.16, ConversionRate: 2.81},
		"healthcare":    {CTR: 3.27, CPC: 2.62, ConversionRate: 3.36},
		"finance":       {CTR: 2.91, CPC: 3.77, ConversionRate: 5.10},
		"education":     {CTR: 3.78, CPC: 2.40, ConversionRate: 3.39},
		DefaultIndustry: {CTR: 2.00, CPC: 2.50, ConversionRate: 3.00},
	}
}

// With returns a copy of b with overrides applied. Override keys are
// lowercased.
func (b Benchmarks) With(overrides map[string]Benchmark) Benchmarks {
	out := make(Benchmarks, len(b)+len(overrides))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range overrides {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// Lookup returns the row for industry, falling back to the default row.
func (b Benchmarks) Lookup(industry string) Benchmark {
	if row, ok := b[strings.ToLower(strings.TrimSpace(industry))]; ok {
		return row
	}
	if row, ok := b[DefaultIndustry]; ok {
		return row
	}
	return DefaultBenchmarks()[DefaultIndustry]
}
