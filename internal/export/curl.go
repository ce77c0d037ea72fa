// Package export renders captured records in formats other tools read.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sadopc/netscope/internal/record"
)

// AsCurl converts a captured request to a curl command that replays it.
func AsCurl(rec record.Record) string {
	parts := []string{"curl"}

	if rec.Method != "" && rec.Method != "GET" {
		parts = append(parts, "-X", rec.Method)
	}

	keys := make([]string, 0, len(rec.RequestHeaders))
	for k := range rec.RequestHeaders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range rec.RequestHeaders[k] {
			parts = append(parts, "-H", shellQuote(fmt.Sprintf("%s: %s", k, v)))
		}
	}

	if len(rec.RequestBody) > 0 {
		parts = append(parts, "--data-raw", shellQuote(string(rec.RequestBody)))
	}

	parts = append(parts, shellQuote(rec.URL))
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
