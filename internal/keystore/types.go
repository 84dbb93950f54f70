package keystore

import (
	"os"
	"strings"
)

// Type names a keystore container format.
type Type string

const (
	// TypeCBOR is the binary container format.
	TypeCBOR Type = "cbor"
	// TypeTOML is the text container format.
	TypeTOML Type = "toml"
	// TypeJKS and TypeDKS are container formats that cannot hold secret-key entries.
	TypeJKS Type = "jks"
	TypeDKS Type = "dks"
)

// FallbackType replaces a platform default that cannot hold secret keys.
const FallbackType = TypeCBOR

// PlatformTypeEnv overrides the platform default container type.
const PlatformTypeEnv = "KEYSTASH_KEYSTORE_TYPE"

// these known types do not support symmetric keys
var unsupportedTypes = []Type{TypeJKS, TypeDKS}

// ParseType normalizes a container type name.
func ParseType(name string) Type {
	return Type(strings.ToLower(strings.TrimSpace(name)))
}

func (t Type) String() string {
	return string(t)
}

// Supported reports whether a container codec exists for t.
func (t Type) Supported() bool {
	_, ok := codecs[t]
	return ok
}

// Denylisted reports whether t is known not to hold secret-key entries.
func (t Type) Denylisted() bool {
	for _, unsupported := range unsupportedTypes {
		if t == unsupported {
			return true
		}
	}
	return false
}

// PlatformDefaultType returns the process-wide default container type.
func PlatformDefaultType() Type {
	if name := os.Getenv(PlatformTypeEnv); strings.TrimSpace(name) != "" {
		return ParseType(name)
	}
	return TypeCBOR
}

// Resolver picks the container type used for new and existing keystores.
// The result is computed once from the platform default it was built with.
type Resolver struct {
	platformDefault Type
	resolved        Type
}

// NewResolver returns a Resolver for the given platform default.
func NewResolver(platformDefault Type) Resolver {
	platformDefault = ParseType(string(platformDefault))
	resolved := platformDefault
	if platformDefault.Denylisted() {
		resolved = FallbackType
	}
	return Resolver{platformDefault: platformDefault, resolved: resolved}
}

// Resolve returns the platform default, or FallbackType when the default
// cannot hold secret keys. It never fails; an unsupported type is reported
// when a container of that type is created or opened.
func (r Resolver) Resolve() Type {
	return r.resolved
}

// PlatformDefault returns the type the resolver was built with.
func (r Resolver) PlatformDefault() Type {
	return r.platformDefault
}
