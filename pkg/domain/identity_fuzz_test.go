package domain

import (
	"testing"
)

// FuzzParseIdentity checks that parsing never panics and that every accepted
// identity round-trips through its string form.
func FuzzParseIdentity(f *testing.F) {
	f.Add("")
	f.Add(validHex)
	f.Add("0x" + validHex)
	f.Add("0000000000000000000000000000000000000000000000000000000000000000")
	f.Add("not-an-identity")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		ident, err := ParseIdentity(input)
		if err != nil {
			return
		}
		if ident.IsZero() {
			t.Fatal("zero identity was accepted")
		}
		again, err := ParseIdentity(ident.String())
		if err != nil {
			t.Fatalf("accepted identity failed round-trip: %v", err)
		}
		if again != ident {
			t.Fatal("round-trip changed identity value")
		}
	})
}
