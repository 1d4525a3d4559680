package fcs

import "fmt"

// parseText splits a TEXT segment into keywords. The first byte is the
// delimiter; a doubled delimiter inside a name or value stands for one
// literal delimiter.
func parseText(seg []byte) (*Keywords, error) {
	if len(seg) < 2 {
		return nil, fmt.Errorf("%w: TEXT segment of %d bytes", ErrMalformed, len(seg))
	}
	delim := seg[0]

	var (
		tokens []string
		cur    []byte
	)
	for i := 1; i < len(seg); i++ {
		c := seg[i]
		if c != delim {
			cur = append(cur, c)
			continue
		}
		if i+1 < len(seg) && seg[i+1] == delim {
			cur = append(cur, delim)
			i++
			continue
		}
		tokens = append(tokens, string(cur))
		cur = cur[:0]
	}
	// Some writers omit the closing delimiter.
	if len(cur) > 0 {
		tokens = append(tokens, string(cur))
	}

	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("%w: TEXT has a keyword without a value", ErrMalformed)
	}
	entries := make([]Keyword, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		entries = append(entries, Keyword{Name: tokens[i], Value: tokens[i+1]})
	}
	return NewKeywords(entries...), nil
}
