package fonts

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type codepointRange struct {
	lo, hi rune
}

// parseUnicodeRange parses a unicode-range descriptor value such as
// "U+0000-00FF, U+0131, U+4??".
func parseUnicodeRange(value string) ([]codepointRange, error) {
	var ranges []codepointRange
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		r, err := parseRangeToken(token)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("empty unicode-range")
	}
	return ranges, nil
}

func parseRangeToken(token string) (codepointRange, error) {
	if len(token) < 3 || !strings.EqualFold(token[:2], "U+") {
		return codepointRange{}, fmt.Errorf("malformed range token %q", token)
	}
	body := token[2:]

	var r codepointRange
	if lo, hi, isSpan := strings.Cut(body, "-"); isSpan {
		var err error
		if r.lo, err = parseHex(lo, token); err != nil {
			return codepointRange{}, err
		}
		if r.hi, err = parseHex(hi, token); err != nil {
			return codepointRange{}, err
		}
	} else if strings.Contains(body, "?") {
		trimmed := strings.TrimRight(body, "?")
		if strings.Contains(trimmed, "?") || len(body) > 6 {
			return codepointRange{}, fmt.Errorf("malformed wildcard %q", token)
		}
		var err error
		if r.lo, err = parseHex(trimmed+strings.Repeat("0", len(body)-len(trimmed)), token); err != nil {
			return codepointRange{}, err
		}
		if r.hi, err = parseHex(trimmed+strings.Repeat("F", len(body)-len(trimmed)), token); err != nil {
			return codepointRange{}, err
		}
	} else {
		cp, err := parseHex(body, token)
		if err != nil {
			return codepointRange{}, err
		}
		r.lo, r.hi = cp, cp
	}

	if r.lo > r.hi {
		return codepointRange{}, fmt.Errorf("reversed range %q", token)
	}
	if r.hi > utf8.MaxRune {
		return codepointRange{}, fmt.Errorf("range %q exceeds U+10FFFF", token)
	}
	return r, nil
}

func parseHex(s, token string) (rune, error) {
	if s == "" || len(s) > 6 {
		return 0, fmt.Errorf("malformed range token %q", token)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed range token %q", token)
	}
	return rune(v), nil
}
