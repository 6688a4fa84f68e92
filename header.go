package cookietap

import (
	"net/url"
	"strings"
)

// Map returns the cookies as a name to value map.
func (r Result) Map() map[string]string {
	out := make(map[string]string, len(r.Cookies))
	for _, c := range r.Cookies {
		out[c.Name] = c.Value
	}
	return out
}

// Header serializes the cookies as a single HTTP Cookie header value:
// percent-encoded name=value pairs joined with "; ", in first-seen order.
func (r Result) Header() string {
	parts := make([]string, 0, len(r.Cookies))
	for _, c := range r.Cookies {
		parts = append(parts, percentEncode(c.Name)+"="+percentEncode(c.Value))
	}
	return strings.Join(parts, "; ")
}

func percentEncode(s string) string {
	// QueryEscape but with %20 for spaces, matching URI component encoding.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
