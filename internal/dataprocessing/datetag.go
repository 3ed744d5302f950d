package dataprocessing

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DateTagLayout is the tag format embedded in output file names.
const DateTagLayout = "2006_01_02"

// Date patterns recognized in input file names, tried in order.
var (
	compactDatePattern  = regexp.MustCompile(`(20\d{2}[01]\d[0-3]\d)`)
	isoDatePattern      = regexp.MustCompile(`(20\d{2})[-_](\d{2})[-_](\d{2})`)
	americanDatePattern = regexp.MustCompile(`(\d{2})[-_](\d{2})[-_](20\d{2})`)
)

// ExtractDateTag derives the YYYY_MM_DD tag for output names from an input
// file name. Compact (20240131), ISO (2024-01-31, 2024_01_31) and
// month-first (01-31-2024) forms are recognized; candidates that do not
// resolve to a real calendar date are skipped. When nothing matches, the
// tag is today's date.
func ExtractDateTag(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	if m := compactDatePattern.FindStringSubmatch(stem); m != nil {
		if t, err := time.Parse("20060102", m[1]); err == nil {
			return t.Format(DateTagLayout)
		}
	}
	if m := isoDatePattern.FindStringSubmatch(stem); m != nil {
		if t, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])); err == nil {
			return t.Format(DateTagLayout)
		}
	}
	if m := americanDatePattern.FindStringSubmatch(stem); m != nil {
		if t, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%s-%s", m[3], m[1], m[2])); err == nil {
			return t.Format(DateTagLayout)
		}
	}

	return time.Now().Format(DateTagLayout)
}
