package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/brazyl/brazyl/internal/infra/upstream"
)

const keyPrefix = "brazyl:cache:"

// CallSignature identifies one idempotent upstream read.
type CallSignature struct {
	Host     string
	Endpoint string
	Params   upstream.Params
}

// Key builds the cache key. Parameter order does not affect the result.
func (s CallSignature) Key() string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.Params[k])
		b.WriteByte('&')
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s%s:%s:%x", keyPrefix, s.Host, s.Endpoint, hash[:16])
}

func (s CallSignature) String() string {
	return s.Host + s.Endpoint + "?" + s.Params.Encode()
}
