// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package extract

import "regexp"

// compiledRegex wraps a compiled extraction pattern: the first capture
// group wins when present, else the whole match.
type compiledRegex struct{ re *regexp.Regexp }

func compileRegex(pattern string) (*compiledRegex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &compiledRegex{re: re}, nil
}

// FirstGroupOrWhole returns the first capture group of the first match in
// text, or the whole match if the pattern has no groups. Returns "" on no
// match.
func (c *compiledRegex) FirstGroupOrWhole(text string) string {
	m := c.re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}
