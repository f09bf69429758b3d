package moodle

import (
	"fmt"
	"net/url"
	"strconv"
)

// encodeParams flattens an operation's parameters into form fields.
//
// The web service dialect addresses list-of-record values positionally: the
// field f of the i-th record under key name[i][f]. That layout is a wire
// requirement of the API family, so it is reproduced here exactly, including
// for nested records such as module options. Booleans travel as 1/0.
func encodeParams(op string, in map[string]any) (url.Values, error) {
	vals := url.Values{}
	for key, v := range in {
		if err := encodeValue(op, key, v, vals); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

func encodeValue(op, key string, v any, vals url.Values) error {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		vals.Set(key, t)
	case bool:
		if t {
			vals.Set(key, "1")
		} else {
			vals.Set(key, "0")
		}
	case int:
		vals.Set(key, strconv.Itoa(t))
	case int64:
		vals.Set(key, strconv.FormatInt(t, 10))
	case float64:
		vals.Set(key, strconv.FormatFloat(t, 'f', -1, 64))
	case []map[string]any:
		for i, record := range t {
			for field, fv := range record {
				nested := fmt.Sprintf("%s[%d][%s]", key, i, field)
				if err := encodeValue(op, nested, fv, vals); err != nil {
					return err
				}
			}
		}
	case map[string]any:
		for field, fv := range t {
			nested := fmt.Sprintf("%s[%s]", key, field)
			if err := encodeValue(op, nested, fv, vals); err != nil {
				return err
			}
		}
	case []string:
		for i, s := range t {
			vals.Set(fmt.Sprintf("%s[%d]", key, i), s)
		}
	case []int64:
		for i, n := range t {
			vals.Set(fmt.Sprintf("%s[%d]", key, i), strconv.FormatInt(n, 10))
		}
	default:
		return &EncodeError{
			Op:     op,
			Field:  key,
			Reason: fmt.Sprintf("unsupported parameter type %T", v),
		}
	}
	return nil
}
