package killmail

import (
	"bytes"
	"fmt"
	"strconv"
)

// FlexInt64 decodes JSON integers that legacy killboard APIs encode either as
// native numbers or as quoted strings.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	value, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing integer field %q: %w", string(data), err)
	}
	*f = FlexInt64(value)
	return nil
}

func (f FlexInt64) Int64() int64 {
	return int64(f)
}
