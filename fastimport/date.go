package fastimport

import (
	"fmt"
	"strconv"
)

// Date is a raw `"<seconds> <+/-hhmm>"` date byte string as it appears
// on an author/committer/tagger line. The raw bytes are kept verbatim
// so round-tripping is lossless (spec.md's Design Notes: "avoid eagerly
// converting because many producers emit offsets this core should not
// normalize"); Epoch/Offset parse it lazily, on demand.
type Date struct {
	Raw []byte
}

// NewDate formats an (epoch, offset) pair into a Date, e.g.
// NewDate(1000000000, "+0000").
func NewDate(epoch int64, offset string) Date {
	return Date{Raw: []byte(fmt.Sprintf("%d %s", epoch, offset))}
}

// Epoch parses the seconds-since-epoch component.
func (d Date) Epoch() (int64, error) {
	secs, _, err := d.split()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(secs, 10, 64)
}

// Offset returns the raw `+hhmm`/`-hhmm` timezone component.
func (d Date) Offset() (string, error) {
	_, off, err := d.split()
	return off, err
}

func (d Date) split() (secs, offset string, err error) {
	raw := string(d.Raw)
	for i := 0; i < len(raw); i++ {
		if raw[i] == ' ' {
			return raw[:i], raw[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("fastimport: malformed date %q", raw)
}

func (d Date) String() string { return string(d.Raw) }
