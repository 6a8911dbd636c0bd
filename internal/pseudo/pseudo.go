// Package pseudo implements the post-order rewrite of server "pseudo-type"
// encodings ($reql_type$-tagged objects) into native values, per run
// options (time_format, group_format, binary_format).
package pseudo

import (
	"encoding/base64"

	"reqldriver/internal/reqlerr"
)

const reqlTypeKey = "$reql_type$"

// Time is a TIME pseudo-type converted to native form: milliseconds since
// the Unix epoch. The server's timezone field is intentionally dropped, per
// spec.
type Time int64

// GroupedPair is one (group, reduction) entry of a converted GROUPED_DATA
// pseudo-type, in the server's original pair order.
type GroupedPair struct {
	Group     interface{}
	Reduction interface{}
}

// Options controls how each pseudo-type family is converted.
type Options struct {
	TimeFormat   string // "native" (default) or "raw"
	GroupFormat  string // "native" (default) or "raw"
	BinaryFormat string // "native" (default) or "raw"
}

func (o Options) timeFormat() string {
	if o.TimeFormat == "" {
		return "native"
	}
	return o.TimeFormat
}

func (o Options) groupFormat() string {
	if o.GroupFormat == "" {
		return "native"
	}
	return o.GroupFormat
}

func (o Options) binaryFormat() string {
	if o.BinaryFormat == "" {
		return "native"
	}
	return o.BinaryFormat
}

// Convert recursively rewrites v, translating every $reql_type$-tagged
// object it finds according to opts. Arrays are traversed elementwise;
// non-object, non-array leaves and objects without $reql_type$ (other than
// having their values recursively converted) are returned unchanged.
// Unknown $reql_type$ tags are returned untouched.
func Convert(v interface{}, opts Options) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		return convertMap(val, opts)
	case []interface{}:
		return convertSlice(val, opts)
	default:
		return v, nil
	}
}

func convertMap(m map[string]interface{}, opts Options) (interface{}, error) {
	rt, ok := m[reqlTypeKey]
	if !ok {
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			cv, err := Convert(v, opts)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	}

	switch rt {
	case "TIME":
		return convertTime(m, opts.timeFormat())
	case "GROUPED_DATA":
		return convertGroupedData(m, opts.groupFormat())
	case "BINARY":
		return convertBinary(m, opts.binaryFormat())
	default:
		return m, nil
	}
}

func convertSlice(s []interface{}, opts Options) (interface{}, error) {
	out := make([]interface{}, len(s))
	for i, v := range s {
		cv, err := Convert(v, opts)
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func convertTime(m map[string]interface{}, format string) (interface{}, error) {
	switch format {
	case "raw":
		return m, nil
	case "native":
		epoch, ok := m["epoch_time"].(float64)
		if !ok {
			return nil, reqlerr.NewDriverError("pseudo: TIME object missing expected field epoch_time")
		}
		return Time(epoch * 1000), nil
	default:
		return nil, reqlerr.NewDriverError("pseudo: Unknown time_format %q", format)
	}
}

func convertGroupedData(m map[string]interface{}, format string) (interface{}, error) {
	switch format {
	case "raw":
		return m, nil
	case "native":
		data, ok := m["data"].([]interface{})
		if !ok {
			return nil, reqlerr.NewDriverError("pseudo: GROUPED_DATA object missing expected field data")
		}
		pairs := make([]GroupedPair, 0, len(data))
		for _, entry := range data {
			pair, ok := entry.([]interface{})
			if !ok || len(pair) != 2 {
				return nil, reqlerr.NewDriverError("pseudo: GROUPED_DATA entry is not a [group, reduction] pair")
			}
			pairs = append(pairs, GroupedPair{Group: pair[0], Reduction: pair[1]})
		}
		return pairs, nil
	default:
		return nil, reqlerr.NewDriverError("pseudo: Unknown group_format %q", format)
	}
}

func convertBinary(m map[string]interface{}, format string) (interface{}, error) {
	switch format {
	case "raw":
		return m, nil
	case "native":
		data, ok := m["data"].(string)
		if !ok {
			return nil, reqlerr.NewDriverError("pseudo: BINARY object missing expected field data")
		}
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, reqlerr.NewDriverError("pseudo: BINARY data is not valid base64: %v", err)
		}
		return b, nil
	default:
		return nil, reqlerr.NewDriverError("pseudo: Unknown binary_format %q", format)
	}
}
