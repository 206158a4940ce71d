package httpheader

import "strings"

// Get returns the first value of the case-insensitive header name in
// headers, or "" if absent. Request headers in this module are always
// handled as map[string][]string rather than net/http.Header so the
// core stays decoupled from any particular network framework.
func Get(headers map[string][]string, name string) string {
	for k, vs := range headers {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}
