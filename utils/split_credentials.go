package utils

import "strings"

// SplitCombinedSecret splits a "username:password" secret on its first
// separator. ok is false when either half is empty.
func SplitCombinedSecret(secret, sep string) (username, password string, ok bool) {
	if sep == "" {
		sep = ":"
	}
	username, password, found := strings.Cut(secret, sep)
	if !found || username == "" || password == "" {
		return "", "", false
	}
	return username, password, true
}
