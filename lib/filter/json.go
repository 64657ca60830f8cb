package filter

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
)

var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// MarshalJSON writes the wire form, tag constraints as "#x" keys.
func (f Filter) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 8)
	if f.IDs != nil {
		out["ids"] = f.IDs
	}
	if f.Authors != nil {
		out["authors"] = f.Authors
	}
	if f.Kinds != nil {
		ks := make([]int, len(f.Kinds))
		for i, k := range f.Kinds {
			ks[i] = int(k)
		}
		out["kinds"] = ks
	}
	for key, values := range f.Tags {
		if values == nil {
			values = []string{}
		}
		out["#"+key] = values
	}
	if f.Since != nil {
		out["since"] = int64(*f.Since)
	}
	if f.Until != nil {
		out["until"] = int64(*f.Until)
	}
	if f.Limit > 0 || f.LimitZero {
		out["limit"] = f.Limit
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the wire form. Unknown keys are ignored; tag keys
// must be a single letter.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errorf("%v", err)
	}

	var out Filter
	for key, value := range raw {
		var err error
		switch {
		case key == "ids":
			err = json.Unmarshal(value, &out.IDs)
		case key == "authors":
			err = json.Unmarshal(value, &out.Authors)
		case key == "kinds":
			var ks []int
			if err = json.Unmarshal(value, &ks); err == nil && ks != nil {
				out.Kinds = make([]kinds.Kind, len(ks))
				for i, k := range ks {
					out.Kinds[i] = kinds.Kind(k)
				}
			}
		case key == "since":
			var ts events.Timestamp
			if err = json.Unmarshal(value, &ts); err == nil {
				out.Since = &ts
			}
		case key == "until":
			var ts events.Timestamp
			if err = json.Unmarshal(value, &ts); err == nil {
				out.Until = &ts
			}
		case key == "limit":
			if err = json.Unmarshal(value, &out.Limit); err == nil && out.Limit == 0 {
				out.LimitZero = true
			}
		case strings.HasPrefix(key, "#"):
			var values []string
			if err = json.Unmarshal(value, &values); err == nil {
				if out.Tags == nil {
					out.Tags = TagMap{}
				}
				out.Tags[key[1:]] = values
			}
		}
		if err != nil {
			return errorf("field %q: %v", key, err)
		}
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*f = out
	return nil
}

// Decode parses one filter. Errors wrap ErrInvalidFilter.
func Decode(data []byte) (Filter, error) {
	var f Filter
	err := f.UnmarshalJSON(data)
	return f, err
}

func (f Filter) String() string {
	b, err := f.MarshalJSON()
	if err != nil {
		return "<invalid filter>"
	}
	return string(b)
}
