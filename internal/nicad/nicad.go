// Package nicad reads NiCad clone class reports.
package nicad

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/highbeam/clonetrack/internal/clone"
)

// ErrMalformedReport is returned when a report cannot be decoded.
var ErrMalformedReport = errors.New("malformed clone report")

type xmlReport struct {
	XMLName xml.Name   `xml:"clones"`
	Classes []xmlClass `xml:"class"`
}

type xmlClass struct {
	ClassID string      `xml:"classid,attr"`
	Sources []xmlSource `xml:"source"`
}

type xmlSource struct {
	File      string `xml:"file,attr"`
	StartLine string `xml:"startline,attr"`
	EndLine   string `xml:"endline,attr"`
	PCID      string `xml:"pcid,attr"`
}

// Parse decodes a classes report. An empty (or whitespace-only) report has no
// classes. Classes whose classid is not a number are skipped; fragments with
// unparseable line numbers or pcid are an error.
func Parse(r io.Reader) (clone.RevisionSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return clone.RevisionSet{}, fmt.Errorf("read report: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return clone.RevisionSet{}, nil
	}

	var doc xmlReport
	if err := xml.Unmarshal(data, &doc); err != nil {
		return clone.RevisionSet{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}

	var set clone.RevisionSet
	for _, xc := range doc.Classes {
		classID, err := strconv.Atoi(strings.TrimSpace(xc.ClassID))
		if err != nil {
			continue
		}
		c := clone.Class{ID: classID}
		for i, xs := range xc.Sources {
			f, err := xs.fragment(classID)
			if err != nil {
				return clone.RevisionSet{}, fmt.Errorf("%w: class %d source %d: %v", ErrMalformedReport, classID, i, err)
			}
			c.Fragments = append(c.Fragments, f)
		}
		set.Classes = append(set.Classes, c)
	}
	return set, nil
}

func (xs xmlSource) fragment(classID int) (*clone.Fragment, error) {
	start, err := attrInt("startline", xs.StartLine)
	if err != nil {
		return nil, err
	}
	end, err := attrInt("endline", xs.EndLine)
	if err != nil {
		return nil, err
	}
	pcID, err := attrInt("pcid", xs.PCID)
	if err != nil {
		return nil, err
	}
	return clone.NewFragment(classID, pcID, start, end, xs.File), nil
}

func attrInt(name, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", name, v)
	}
	return n, nil
}

// ParseFile parses the report stored at path.
func ParseFile(path string) (clone.RevisionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return clone.RevisionSet{}, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
