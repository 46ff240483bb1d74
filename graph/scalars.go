package graph

import (
	"encoding/json"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/shopspring/decimal"
)

// Decimal serializes money as a string with two fraction digits and accepts
// strings, ints or floats as input.
var Decimal = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Decimal",
	Description: "Fixed-point decimal serialized as a string, e.g. \"999.99\".",
	Serialize: func(value interface{}) interface{} {
		switch d := value.(type) {
		case decimal.Decimal:
			return d.StringFixed(2)
		case *decimal.Decimal:
			if d == nil {
				return nil
			}
			return d.StringFixed(2)
		}
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		d, ok := toDecimal(value)
		if !ok {
			return nil
		}
		return d
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		var raw string
		switch v := valueAST.(type) {
		case *ast.StringValue:
			raw = v.Value
		case *ast.FloatValue:
			raw = v.Value
		case *ast.IntValue:
			raw = v.Value
		default:
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil
		}
		return d
	},
})

func toDecimal(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	}
	return decimal.Decimal{}, false
}
