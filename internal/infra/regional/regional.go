// Package regional serves regional default category weights and income
// tiers from a YAML table.
package regional

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultRegions []byte

type tierDoc struct {
	Name string `yaml:"name"`
	Max  string `yaml:"max"`
}

type regionDoc struct {
	Tiers       []tierDoc                    `yaml:"tiers"`
	Weights     map[string]map[string]string `yaml:"weights"`
	Multipliers map[string]string            `yaml:"multipliers"`
}

type fileDoc struct {
	Regions map[string]regionDoc `yaml:"regions"`
}

type tier struct {
	name string
	max  decimal.Decimal
	open bool
}

type region struct {
	tiers       []tier
	weights     map[string]map[string]decimal.Decimal
	multipliers map[string]decimal.Decimal
}

// Provider implements port.CountryProfileProvider and port.IncomeClassifier.
// It is read-only after construction.
type Provider struct {
	regions map[string]region
}

// Default returns the provider built from the embedded region table.
func Default() *Provider {
	p, err := Parse(defaultRegions)
	if err != nil {
		panic("regional: invalid embedded regions: " + err.Error())
	}
	return p
}

// Load reads a YAML region file. An empty path yields the embedded defaults.
func Load(path string) (*Provider, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region profiles %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a provider from a YAML region document.
func Parse(data []byte) (*Provider, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode region profiles: %w", err)
	}

	p := &Provider{regions: make(map[string]region, len(doc.Regions))}
	for code, rd := range doc.Regions {
		r, err := parseRegion(rd)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", code, err)
		}
		p.regions[strings.ToUpper(code)] = r
	}
	return p, nil
}

func parseRegion(rd regionDoc) (region, error) {
	r := region{
		weights:     make(map[string]map[string]decimal.Decimal, len(rd.Weights)),
		multipliers: make(map[string]decimal.Decimal, len(rd.Multipliers)),
	}

	for i, td := range rd.Tiers {
		if td.Name == "" {
			return r, fmt.Errorf("tier %d has no name", i)
		}
		t := tier{name: td.Name, open: td.Max == ""}
		if !t.open {
			m, err := decimal.NewFromString(td.Max)
			if err != nil {
				return r, fmt.Errorf("tier %s: bad max %q: %w", td.Name, td.Max, err)
			}
			if n := len(r.tiers); n > 0 && !r.tiers[n-1].max.LessThan(m) {
				return r, fmt.Errorf("tier %s: bounds must ascend", td.Name)
			}
			t.max = m
		} else if i != len(rd.Tiers)-1 {
			return r, fmt.Errorf("tier %s: only the last tier may be unbounded", td.Name)
		}
		r.tiers = append(r.tiers, t)
	}

	for tierName, ws := range rd.Weights {
		parsed, err := parseAmounts(ws)
		if err != nil {
			return r, fmt.Errorf("weights %s: %w", tierName, err)
		}
		r.weights[tierName] = parsed
	}
	m, err := parseAmounts(rd.Multipliers)
	if err != nil {
		return r, fmt.Errorf("multipliers: %w", err)
	}
	r.multipliers = m
	return r, nil
}

func parseAmounts(in map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("%s: must not be negative", k)
		}
		out[k] = d
	}
	return out, nil
}

func (p *Provider) lookup(code string) (region, error) {
	r, ok := p.regions[strings.ToUpper(code)]
	if !ok {
		return region{}, &domain.ErrNotFound{Resource: "region", ID: code}
	}
	return r, nil
}

// Regions lists the configured region codes.
func (p *Provider) Regions() []string {
	out := make([]string, 0, len(p.regions))
	for code := range p.regions {
		out = append(out, code)
	}
	return out
}

// Classify returns the first tier whose bound is at least income.
func (p *Provider) Classify(_ context.Context, code string, income decimal.Decimal) (string, error) {
	r, err := p.lookup(code)
	if err != nil {
		return "", err
	}
	for _, t := range r.tiers {
		if t.open || income.LessThanOrEqual(t.max) {
			return t.name, nil
		}
	}
	if n := len(r.tiers); n > 0 {
		return r.tiers[n-1].name, nil
	}
	return "", nil
}

// DefaultWeights returns a copy of the tier's weights. An unknown or empty
// tier falls back to the region's first tier.
func (p *Provider) DefaultWeights(_ context.Context, code, incomeTier string) (map[string]decimal.Decimal, error) {
	r, err := p.lookup(code)
	if err != nil {
		return nil, err
	}
	ws, ok := r.weights[incomeTier]
	if !ok && len(r.tiers) > 0 {
		ws, ok = r.weights[r.tiers[0].name]
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "weights", ID: code + "/" + incomeTier}
	}
	return copyAmounts(ws), nil
}

// RegionalMultipliers returns a copy of the region's multipliers.
func (p *Provider) RegionalMultipliers(_ context.Context, code string) (map[string]decimal.Decimal, error) {
	r, err := p.lookup(code)
	if err != nil {
		return nil, err
	}
	return copyAmounts(r.multipliers), nil
}

func copyAmounts(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
