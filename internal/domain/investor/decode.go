package investor

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"

	"github.com/irdash/backend/internal/domain/gateway"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// timeLayouts are tried in order when a timestamp arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func stringToTimeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	var s string
	switch v := data.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return data, nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as timestamp", s)
}

func toDecimalHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(v)))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	return nil, fmt.Errorf("cannot convert %T to decimal", data)
}

// DecodeRow decodes a gateway row into out using the json field tags.
// Timestamps may arrive as time.Time or text, numbers as numeric or text.
func DecodeRow(row gateway.Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(stringToTimeHook, toDecimalHook),
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(row))
}

// PersonDecoder returns a row decoder that resolves member types with policy.
func PersonDecoder(policy MemberTypePolicy) func(gateway.Row) (Person, error) {
	return func(row gateway.Row) (Person, error) {
		var p Person
		if err := DecodeRow(row, &p); err != nil {
			return Person{}, fmt.Errorf("decode person: %w", err)
		}
		p.MemberType = policy.Parse(string(p.MemberType))
		return p, nil
	}
}

// DecodePerson decodes a person row with DefaultMemberTypePolicy.
func DecodePerson(row gateway.Row) (Person, error) {
	return PersonDecoder(DefaultMemberTypePolicy)(row)
}

// DecodeItem decodes an item row.
func DecodeItem(row gateway.Row) (Item, error) {
	var i Item
	if err := DecodeRow(row, &i); err != nil {
		return Item{}, fmt.Errorf("decode item: %w", err)
	}
	return i, nil
}

// DecodeCommitment decodes a commitment row.
func DecodeCommitment(row gateway.Row) (Commitment, error) {
	var c Commitment
	if err := DecodeRow(row, &c); err != nil {
		return Commitment{}, fmt.Errorf("decode commitment: %w", err)
	}
	return c, nil
}
