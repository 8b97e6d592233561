// Package httprange parses single-range HTTP Range headers.
package httprange

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformed is returned for headers that are not a usable bytes range.
// Callers treat it as "no range" and serve the full body.
var ErrMalformed = errors.New("malformed range header")

// Spec is the first clause of a bytes Range header.
// Suffix ranges ("bytes=-N") set SuffixLength and leave Start nil.
type Spec struct {
	Start        *int64
	End          *int64
	SuffixLength int64
}

// Parse reads "bytes=start-end", "bytes=start-" or "bytes=-N".
// Only the first clause of a multi-range header is honoured.
func Parse(header string) (*Spec, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	unit, set, ok := strings.Cut(header, "=")
	if !ok || !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return nil, ErrMalformed
	}
	first, _, _ := strings.Cut(set, ",")
	first = strings.TrimSpace(first)

	startStr, endStr, ok := strings.Cut(first, "-")
	if !ok {
		return nil, ErrMalformed
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrMalformed
		}
		return &Spec{SuffixLength: n}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, ErrMalformed
	}
	spec := &Spec{Start: &start}
	if endStr != "" {
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, ErrMalformed
		}
		spec.End = &end
	}
	return spec, nil
}

// Resolve converts the spec into absolute start/end offsets for a body of total bytes.
// The end offset is clamped to total-1. ok is false when the range cannot be satisfied.
func (s *Spec) Resolve(total int64) (start, end int64, ok bool) {
	if total <= 0 {
		return 0, 0, false
	}
	if s.Start == nil {
		if s.SuffixLength <= 0 {
			return 0, 0, false
		}
		start = total - s.SuffixLength
		if start < 0 {
			start = 0
		}
		return start, total - 1, true
	}
	start = *s.Start
	if start >= total {
		return 0, 0, false
	}
	end = total - 1
	if s.End != nil && *s.End < end {
		end = *s.End
	}
	return start, end, true
}

// ContentRange formats a Content-Range header value.
func ContentRange(start, end, total int64) string {
	return "bytes " + strconv.FormatInt(start, 10) + "-" + strconv.FormatInt(end, 10) + "/" + strconv.FormatInt(total, 10)
}

// UnsatisfiedRange formats the Content-Range header value sent with 416 responses.
func UnsatisfiedRange(total int64) string {
	return "bytes */" + strconv.FormatInt(total, 10)
}
