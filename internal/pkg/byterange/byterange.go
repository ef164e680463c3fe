// Package byterange parses single-span HTTP Range headers of the form
// "bytes=<start>-<end>" against a known resource size.
package byterange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnsatisfiable = errors.New("range not satisfiable")

const unit = "bytes="

// Range is an inclusive byte span.
type Range struct {
	Start int64
	End   int64
}

// Length is the number of bytes covered by the span.
func (r Range) Length() int64 { return r.End - r.Start + 1 }

// ContentRange renders the Content-Range header value for a resource of size.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Unsatisfied renders the Content-Range value sent with a 416.
func Unsatisfied(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// Parse resolves header against size. A missing end means the last byte, an
// end past the resource is clamped, and "bytes=-N" selects the final N bytes.
// Multi-span requests are not supported.
func Parse(header string, size int64) (Range, error) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(strings.ToLower(header), unit) {
		return Range{}, ErrUnsatisfiable
	}
	set := strings.TrimSpace(header[len(unit):])
	if set == "" || strings.Contains(set, ",") {
		return Range{}, ErrUnsatisfiable
	}

	startStr, endStr, ok := strings.Cut(set, "-")
	if !ok {
		return Range{}, ErrUnsatisfiable
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		n, err := parseOffset(endStr)
		if err != nil || n == 0 || size == 0 {
			return Range{}, ErrUnsatisfiable
		}
		if n > size {
			n = size
		}
		return Range{Start: size - n, End: size - 1}, nil
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return Range{}, ErrUnsatisfiable
	}
	end := size - 1
	if endStr != "" {
		if end, err = parseOffset(endStr); err != nil {
			return Range{}, ErrUnsatisfiable
		}
	}

	if start >= size || start > end {
		return Range{}, ErrUnsatisfiable
	}
	if end >= size {
		end = size - 1
	}
	return Range{Start: start, End: end}, nil
}

func parseOffset(s string) (int64, error) {
	if s == "" {
		return 0, ErrUnsatisfiable
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, ErrUnsatisfiable
	}
	return n, nil
}
