package promo

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	// KindAbsent is the zero Value: no payload at all.
	KindAbsent ValueKind = iota
	// KindNumber holds a bare JSON number.
	KindNumber
	// KindMoney holds an {amount, currency} object, amount in minor units.
	KindMoney
	// KindBool holds a boolean.
	KindBool
	// KindString holds a single string.
	KindString
	// KindList holds a list of strings.
	KindList
)

// Value is the payload of a rule condition or action. Admin tooling writes
// these as loose JSON: a monetary threshold may arrive as a bare number or as
// an {amount, currency} object, a category filter as a string or an array.
// Value keeps the variants behind one type so every consumer normalizes the
// same way instead of re-checking JSON shapes at each call site.
type Value struct {
	kind     ValueKind
	num      decimal.Decimal
	currency string
	boolean  bool
	str      string
	list     []string
}

// NumberValue returns a Value holding a bare number.
func NumberValue(d decimal.Decimal) Value {
	return Value{kind: KindNumber, num: d}
}

// MoneyValue returns a Value holding an amount in minor units with a currency.
func MoneyValue(amount decimal.Decimal, currency string) Value {
	return Value{kind: KindMoney, num: amount, currency: currency}
}

// BoolValue returns a Value holding a boolean.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// StringValue returns a Value holding a single string.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// ListValue returns a Value holding a list of strings.
func ListValue(items ...string) Value {
	return Value{kind: KindList, list: items}
}

// Kind reports which variant the Value holds.
func (v Value) Kind() ValueKind { return v.kind }

// Amount normalizes the monetary variants: it returns the numeric amount for
// both a bare number and a money object. The second return is false for every
// other variant. This is the single normalization point for condition
// thresholds and discount amounts.
func (v Value) Amount() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber, KindMoney:
		return v.num, true
	default:
		return decimal.Zero, false
	}
}

// Number returns the numeric payload only when the value is a bare number.
// Percentage actions require this stricter form.
func (v Value) Number() (decimal.Decimal, bool) {
	if v.kind != KindNumber {
		return decimal.Zero, false
	}
	return v.num, true
}

// Currency returns the currency tag of a money value, or "".
func (v Value) Currency() string { return v.currency }

// Bool returns the boolean payload and whether the value holds one.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolean, true
}

// Strings returns the string payload(s): the list itself for a list value,
// a one-element slice for a single string, nil otherwise.
func (v Value) Strings() []string {
	switch v.kind {
	case KindList:
		return v.list
	case KindString:
		return []string{v.str}
	default:
		return nil
	}
}

// Decode reads a Value from the decoder, accepting any of the wire shapes.
func (v *Value) Decode(d *jx.Decoder) error {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return errors.Wrap(err, "number")
		}
		num, err := decimal.NewFromString(n.String())
		if err != nil {
			return errors.Wrap(err, "parse number")
		}
		*v = NumberValue(num)
		return nil
	case jx.Bool:
		b, err := d.Bool()
		if err != nil {
			return errors.Wrap(err, "bool")
		}
		*v = BoolValue(b)
		return nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "string")
		}
		*v = StringValue(s)
		return nil
	case jx.Array:
		var items []string
		if err := d.Arr(func(d *jx.Decoder) error {
			s, err := d.Str()
			if err != nil {
				return err
			}
			items = append(items, s)
			return nil
		}); err != nil {
			return errors.Wrap(err, "array")
		}
		*v = ListValue(items...)
		return nil
	case jx.Object:
		var (
			amount   decimal.Decimal
			currency string
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "amount":
				n, err := d.Num()
				if err != nil {
					return errors.Wrap(err, "amount")
				}
				amount, err = decimal.NewFromString(n.String())
				return err
			case "currency":
				s, err := d.Str()
				if err != nil {
					return errors.Wrap(err, "currency")
				}
				currency = s
				return nil
			default:
				return d.Skip()
			}
		}); err != nil {
			return errors.Wrap(err, "object")
		}
		*v = MoneyValue(amount, currency)
		return nil
	case jx.Null:
		if err := d.Null(); err != nil {
			return err
		}
		*v = Value{}
		return nil
	default:
		return errors.Errorf("unexpected value token: %v", d.Next())
	}
}

// Encode writes the Value back in its canonical wire shape.
func (v Value) Encode(e *jx.Encoder) {
	switch v.kind {
	case KindNumber:
		e.RawStr(v.num.String())
	case KindMoney:
		e.ObjStart()
		e.FieldStart("amount")
		e.RawStr(v.num.String())
		e.FieldStart("currency")
		e.Str(v.currency)
		e.ObjEnd()
	case KindBool:
		e.Bool(v.boolean)
	case KindString:
		e.Str(v.str)
	case KindList:
		e.ArrStart()
		for _, s := range v.list {
			e.Str(s)
		}
		e.ArrEnd()
	default:
		e.Null()
	}
}

// UnmarshalJSON implements json.Unmarshaler so Value nests inside structures
// encoded with encoding/json (JSONB rule columns, API payloads).
func (v *Value) UnmarshalJSON(data []byte) error {
	return v.Decode(jx.DecodeBytes(data))
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	e := &jx.Encoder{}
	v.Encode(e)
	return e.Bytes(), nil
}
