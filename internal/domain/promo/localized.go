package promo

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// LocalizedText is a display string that arrives either as a plain string or
// as a locale-tag to string mapping.
type LocalizedText struct {
	plain    string
	byLocale map[string]string
}

// Text returns a LocalizedText with a single plain value.
func Text(s string) LocalizedText {
	return LocalizedText{plain: s}
}

// TextByLocale returns a LocalizedText backed by a locale mapping.
func TextByLocale(m map[string]string) LocalizedText {
	return LocalizedText{byLocale: m}
}

// Resolve picks the best string for the given locale tag: exact match, then
// "en", then the plain value, then any entry at all.
func (t LocalizedText) Resolve(locale string) string {
	if t.byLocale != nil {
		if s, ok := t.byLocale[locale]; ok {
			return s
		}
		if s, ok := t.byLocale["en"]; ok {
			return s
		}
	}
	if t.plain != "" {
		return t.plain
	}
	for _, s := range t.byLocale {
		return s
	}
	return ""
}

// IsZero reports whether the text carries no content.
func (t LocalizedText) IsZero() bool {
	return t.plain == "" && len(t.byLocale) == 0
}

// UnmarshalJSON accepts both a JSON string and a locale map.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case jx.Object:
		m := make(map[string]string)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			s, err := d.Str()
			if err != nil {
				return err
			}
			m[key] = s
			return nil
		}); err != nil {
			return err
		}
		*t = TextByLocale(m)
		return nil
	case jx.Null:
		if err := d.Null(); err != nil {
			return err
		}
		*t = LocalizedText{}
		return nil
	default:
		return errors.New("localized text must be a string or an object")
	}
}

// MarshalJSON writes the text back in the shape it arrived in.
func (t LocalizedText) MarshalJSON() ([]byte, error) {
	e := &jx.Encoder{}
	switch {
	case t.byLocale != nil:
		e.ObjStart()
		for locale, s := range t.byLocale {
			e.FieldStart(locale)
			e.Str(s)
		}
		e.ObjEnd()
	default:
		e.Str(t.plain)
	}
	return e.Bytes(), nil
}
