package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/shopspring/decimal"

	"allocation-tracker/internal/core"
)

// LoadAllocations reads the allocation set from a TOML file of the form
//
//	[[allocation]]
//	type = "hp"
//	name = "Hire Purchase"
//	total = 33000
//
// Declaration order is display order. An empty path yields the defaults.
func LoadAllocations(path string) (core.Allocations, error) {
	if path == "" {
		return core.DefaultAllocations(), nil
	}
	tree, err := toml.LoadFile(path)
	if err != nil {
		return core.Allocations{}, fmt.Errorf("read allocations file: %w", err)
	}
	return allocationsFromTree(tree)
}

// ParseAllocations is LoadAllocations for in-memory content.
func ParseAllocations(content string) (core.Allocations, error) {
	tree, err := toml.Load(content)
	if err != nil {
		return core.Allocations{}, fmt.Errorf("parse allocations: %w", err)
	}
	return allocationsFromTree(tree)
}

func allocationsFromTree(tree *toml.Tree) (core.Allocations, error) {
	entries, ok := tree.Get("allocation").([]*toml.Tree)
	if !ok || len(entries) == 0 {
		return core.Allocations{}, fmt.Errorf("allocations file declares no [[allocation]] entries")
	}

	list := make([]core.Allocation, 0, len(entries))
	for i, e := range entries {
		typ, _ := e.Get("type").(string)
		name, _ := e.Get("name").(string)
		total, err := tomlDecimal(e.Get("total"))
		if err != nil {
			return core.Allocations{}, fmt.Errorf("allocation %d (%s): %w", i+1, typ, err)
		}
		list = append(list, core.Allocation{
			Type:  core.AllocationType(strings.TrimSpace(typ)),
			Name:  strings.TrimSpace(name),
			Total: core.NewMoney(total),
		})
	}
	return core.NewAllocations(list...)
}

func tomlDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid total %q", t)
		}
		return d, nil
	case nil:
		return decimal.Decimal{}, fmt.Errorf("missing total")
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported total type %T", v)
	}
}
