package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Params carries backend request parameters keyed by header-like names.
// Keys are matched case-insensitively.
type Params map[string]string

// Upload parameters
const (
	ParamContentType        = "Content-Type"
	ParamCacheControl       = "Cache-Control"
	ParamContentDisposition = "Content-Disposition"
	ParamContentEncoding    = "Content-Encoding"
	ParamContentLanguage    = "Content-Language"
	ParamACL                = "ACL"
	ParamStorageClass       = "Storage-Class"

	// MetaPrefix marks user metadata, e.g. "Meta-Owner: alice"
	MetaPrefix = "Meta-"
)

// Delete options
const (
	ParamVersionID           = "Version-Id"
	ParamExpectedBucketOwner = "Expected-Bucket-Owner"
	ParamRequestPayer        = "Request-Payer"
	ParamBypassGovernance    = "Bypass-Governance"
)

// ErrUnsupportedParam is returned when a backend does not understand a parameter key.
var ErrUnsupportedParam = errors.New("unsupported storage parameter")

func unsupported(key string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedParam, key)
}

// Merge returns a new Params with every entry of overrides applied on top of p.
// A key in overrides replaces any key of p that differs only in case.
func (p Params) Merge(overrides Params) Params {
	out := make(Params, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		for existing := range out {
			if strings.EqualFold(existing, k) {
				delete(out, existing)
			}
		}
		out[k] = v
	}
	return out
}

// Get looks a key up case-insensitively.
func (p Params) Get(key string) (string, bool) {
	if v, ok := p[key]; ok {
		return v, true
	}
	for k, v := range p {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// metaName reports whether key is a user metadata key and returns the metadata name.
func metaName(key string) (string, bool) {
	if len(key) > len(MetaPrefix) && strings.EqualFold(key[:len(MetaPrefix)], MetaPrefix) {
		return strings.ToLower(key[len(MetaPrefix):]), true
	}
	return "", false
}
