package auth

import "strings"

// RequiresAuth reports whether path must be authenticated given the
// excluded list. Matching ignores trailing slashes and an entry ending
// in '*' exempts every path starting with what precedes the '*'.
func RequiresAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}
	normalized := withSlash(path)
	for _, ex := range excluded {
		if ex == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(ex, "*"); ok {
			if strings.HasPrefix(path, prefix) || strings.HasPrefix(normalized, prefix) {
				return false
			}
			continue
		}
		if withSlash(ex) == normalized {
			return false
		}
	}
	return true
}

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
