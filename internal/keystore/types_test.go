package keystore

import "testing"

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name            string
		platformDefault Type
		expected        Type
	}{
		{"CBORUnchanged", TypeCBOR, TypeCBOR},
		{"TOMLUnchanged", TypeTOML, TypeTOML},
		{"JKSFallsBack", TypeJKS, FallbackType},
		{"DKSFallsBack", TypeDKS, FallbackType},
		{"UppercaseJKSFallsBack", Type("JKS"), FallbackType},
		{"UnknownPassedThrough", Type("pkcs11"), Type("pkcs11")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(tc.platformDefault)
			got := r.Resolve()
			if got != tc.expected {
				t.Errorf("Resolve() with default %q = %q, expected %q", tc.platformDefault, got, tc.expected)
			}
			if got.Denylisted() {
				t.Errorf("Resolve() returned denylisted type %q", got)
			}
		})
	}
}

func TestResolver_KeepsPlatformDefault(t *testing.T) {
	r := NewResolver(TypeJKS)
	if r.PlatformDefault() != TypeJKS {
		t.Errorf("Expected platform default jks, got: %q", r.PlatformDefault())
	}
}

func TestPlatformDefaultType(t *testing.T) {
	t.Setenv(PlatformTypeEnv, "")
	if got := PlatformDefaultType(); got != TypeCBOR {
		t.Errorf("Expected cbor without override, got: %q", got)
	}

	t.Setenv(PlatformTypeEnv, " TOML ")
	if got := PlatformDefaultType(); got != TypeTOML {
		t.Errorf("Expected toml from override, got: %q", got)
	}
}

func TestType_Supported(t *testing.T) {
	for _, typ := range []Type{TypeCBOR, TypeTOML} {
		if !typ.Supported() {
			t.Errorf("Expected %q to be supported", typ)
		}
	}
	for _, typ := range []Type{TypeJKS, TypeDKS, Type("pkcs11")} {
		if typ.Supported() {
			t.Errorf("Expected %q to be unsupported", typ)
		}
	}
}
