// Package chrpos describes genomic intervals in the form tabix expects.
package chrpos

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxTabixEnd is the largest coordinate addressable by a tabix index (2^29).
const MaxTabixEnd = 1 << 29

// TabixLocus is a 0-based, half-open interval. It satisfies the irelate
// IPosition interface so it can be handed directly to a tabix query.
type TabixLocus struct {
	chrom string
	start int
	end   int
}

func MakeTabixLocus(chrom string, start, end int) TabixLocus {
	return TabixLocus{chrom, start, end}
}

func (tl TabixLocus) Chrom() string {
	return tl.chrom
}

func (tl TabixLocus) Start() uint32 {
	return uint32(tl.start)
}

func (tl TabixLocus) End() uint32 {
	return uint32(tl.end)
}

// String renders the locus in 1-based samtools notation.
func (tl TabixLocus) String() string {
	if tl.start == 0 && tl.end >= MaxTabixEnd {
		return tl.chrom
	}

	return fmt.Sprintf("%s:%d-%d", tl.chrom, tl.start+1, tl.end)
}

// ParseRegion reads a samtools-style region ("chr1", "chr1:100-200",
// "chr1:1,000-2,000"; 1-based, inclusive) into a TabixLocus.
func ParseRegion(region string) (TabixLocus, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return TabixLocus{}, fmt.Errorf("ParseRegion: empty region")
	}

	colon := strings.LastIndex(region, ":")
	if colon < 0 {
		return MakeTabixLocus(region, 0, MaxTabixEnd), nil
	}

	chrom, span := region[:colon], strings.ReplaceAll(region[colon+1:], ",", "")
	if chrom == "" {
		return TabixLocus{}, fmt.Errorf("ParseRegion: %q has no chromosome", region)
	}

	parts := strings.SplitN(span, "-", 2)
	start, err := strconv.Atoi(parts[0])
	if err != nil || start < 1 {
		return TabixLocus{}, fmt.Errorf("ParseRegion: %q has an invalid start", region)
	}

	end := MaxTabixEnd
	if len(parts) == 2 && parts[1] != "" {
		if end, err = strconv.Atoi(parts[1]); err != nil {
			return TabixLocus{}, fmt.Errorf("ParseRegion: %q has an invalid end", region)
		}
	}

	if end < start {
		return TabixLocus{}, fmt.Errorf("ParseRegion: %q ends before it starts", region)
	}

	return MakeTabixLocus(chrom, start-1, end), nil
}
