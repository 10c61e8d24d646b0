// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package extract

import "regexp"

// commonLogPattern matches the NCSA Common Log Format:
// host ident authuser [date] "request" status bytes
var commonLogPattern = regexp.MustCompile(
	`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d{3}) (\S+)$`,
)

// combinedLogPattern extends Common with referer and user-agent.
var combinedLogPattern = regexp.MustCompile(
	`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d{3}) (\S+) "([^"]*)" "([^"]*)"$`,
)

// ParseAccessLog recognizes nginx/apache common and combined log lines and
// returns the metadata keys filetail populates for them. ok is false when
// line matches neither format, in which case the caller should fall back to
// treating the whole line as an unstructured message.
func ParseAccessLog(line string) (metadata map[string]string, ok bool) {
	if m := combinedLogPattern.FindStringSubmatch(line); m != nil {
		return map[string]string{
			"remote_ip": m[1],
			"status":    m[6],
			"bytes":     normalizeDash(m[7]),
			"referer":   m[8],
			"user_agent": m[9],
		}, true
	}
	if m := commonLogPattern.FindStringSubmatch(line); m != nil {
		return map[string]string{
			"remote_ip": m[1],
			"status":    m[6],
			"bytes":     normalizeDash(m[7]),
		}, true
	}
	return nil, false
}

func normalizeDash(s string) string {
	if s == "-" {
		return "0"
	}
	return s
}
