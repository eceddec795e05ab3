package sqltypes

import (
	"fmt"
	"strconv"
)

// NullStringScanner reads a nullable text column into a plain string. NULL
// becomes "", and numbers are formatted, since some downloaders write
// upload dates as integers.
type NullStringScanner struct {
	Value *string
}

func (t *NullStringScanner) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*t.Value = ""
	case string:
		*t.Value = src
	case []byte:
		*t.Value = string(src)
	case int64:
		*t.Value = strconv.FormatInt(src, 10)
	case float64:
		*t.Value = strconv.FormatFloat(src, 'f', -1, 64)
	default:
		return fmt.Errorf("sqltypes.NullStringScanner: could not scan input type of %T", src)
	}

	return nil
}
