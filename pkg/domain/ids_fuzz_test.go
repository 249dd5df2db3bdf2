package domain

import "testing"

// FuzzParseVisitID checks that parsing never panics and that accepted ids
// are non-nil and survive formatting.
func FuzzParseVisitID(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"\x00\x01\x02",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		got, err := ParseVisitID(input)
		if err != nil {
			return
		}
		if got.IsNil() {
			t.Fatalf("accepted nil id from %q", input)
		}
		again, err := ParseVisitID(got.String())
		if err != nil || again != got {
			t.Fatalf("id %s from %q does not survive formatting", got, input)
		}
	})
}
