package tools

import "strings"

// RFC 3986 unreserved plus the delimiters the image host emits. Percent
// stays in so presigned query signatures survive.
const urlAllowedPunct = "-._~:/?#[]@!$&'()*+,;=%"

// SanitizeURL strips every character outside the allowed set so a
// malformed upstream URL can not propagate downstream.
func SanitizeURL(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if strings.ContainsRune(urlAllowedPunct, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func FullURL(baseURL, path string) string {
	if baseURL == "" {
		return ""
	}
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	if path == "" {
		return baseURL
	}
	if path[0] == '/' {
		path = path[1:]
	}
	return baseURL + "/" + path
}
