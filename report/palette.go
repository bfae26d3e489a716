package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DefaultPalette colours up to six populations.
var DefaultPalette = []string{"#E41A1C", "#377EB8", "#4DAF4A", "#984EA3", "#FF7F00", "#A65628"}

var hexColor = regexp.MustCompile(`^#?[0-9A-Fa-f]{6}$`)

// ParsePalette converts #RRGGBB codes into colours usable by both plotting
// libraries.
func ParsePalette(codes []string) ([]drawing.Color, error) {
	out := make([]drawing.Color, 0, len(codes))
	for _, v := range codes {
		if !hexColor.MatchString(v) {
			return nil, fmt.Errorf("%q is not a #RRGGBB colour", v)
		}
		out = append(out, drawing.ColorFromHex(strings.TrimPrefix(v, "#")))
	}

	return out, nil
}

// CheckPalette reports whether codes parse and colour at least groups groups.
func CheckPalette(codes []string, groups int) error {
	_, err := paletteFor(codes, groups)
	return err
}

func paletteFor(codes []string, groups int) ([]drawing.Color, error) {
	colors, err := ParsePalette(codes)
	if err != nil {
		return nil, err
	}
	if len(colors) < groups {
		return nil, fmt.Errorf("palette has %d colours for %d groups", len(colors), groups)
	}

	return colors, nil
}
