package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxJSONBodyBytes caps JSON request bodies. Preview requests carry whole
// datasets, so the limit is generous.
const MaxJSONBodyBytes = 8 << 20

// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds MaxJSONBodyBytes.
var ErrBodyTooLarge = errors.New("request body too large")

// DecodeJSON decodes a single JSON value from the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}

	body := io.LimitReader(r.Body, MaxJSONBodyBytes+1)
	counter := &countingReader{r: body}
	if err := json.NewDecoder(counter).Decode(v); err != nil {
		if counter.n > MaxJSONBodyBytes {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if counter.n > MaxJSONBodyBytes {
		return ErrBodyTooLarge
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
