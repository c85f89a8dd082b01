package payment

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the gateway signature over the given parameters: non-empty
// keys except sign/sign_type are ASCII-sorted, joined as k=v&, the shared
// secret is appended and the result is MD5-hashed to lowercase hex.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || k == "sign_type" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySign recomputes the signature and compares it case-insensitively
// against the sign parameter.
func VerifySign(params map[string]string, secret string) bool {
	got := strings.TrimSpace(params["sign"])
	if got == "" {
		return false
	}
	return strings.EqualFold(Sign(params, secret), got)
}
