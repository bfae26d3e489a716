package popgen

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// Delimiters the detector may settle on, most preferred first.
var knownDelimiters = []rune{'\t', ',', ';', '|'}

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. When none of the usual
// delimiters stands out, ' ' is returned, which callers treat as "runs of
// whitespace".
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	found := make(map[rune]struct{}, len(delimiters))
	for _, v := range delimiters {
		if len(v) > 0 {
			found[rune(v[0])] = struct{}{}
		}
	}

	for _, v := range knownDelimiters {
		if _, exists := found[v]; exists {
			return v
		}
	}

	return ' '
}

// DetermineDelimiterBytes is DetermineDelimiter over an in-memory table.
func DetermineDelimiterBytes(b []byte) rune {
	return DetermineDelimiter(bytes.NewReader(b))
}
