/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"sort"
	"strings"
)

var keyPartEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

// GenerateKey builds a cache key from the namespace and the parameters.
// Parameter names are sorted, so the key doesn't depend on the map iteration order:
// GenerateKey("ns", map[string]string{"b": "2", "a": "1"}) == "ns:a:1:b:2".
// Colons and backslashes in names and values are escaped with a backslash,
// so different parameters never produce the same key.
func GenerateKey(namespace string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(namespace)
	for _, name := range names {
		sb.WriteByte(':')
		_, _ = keyPartEscaper.WriteString(&sb, name)
		sb.WriteByte(':')
		_, _ = keyPartEscaper.WriteString(&sb, params[name])
	}
	return sb.String()
}
