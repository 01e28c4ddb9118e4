package domain

import (
	"testing"

	"github.com/google/uuid"
)

// FuzzParseCompanyID checks the parser never accepts input that does not
// round-trip to a canonical non-nil UUID.
func FuzzParseCompanyID(f *testing.F) {
	f.Add("")
	f.Add("not-a-uuid")
	f.Add(uuid.Nil.String())
	f.Add(uuid.New().String())
	f.Add("00000000-0000-0000-0000-00000000000g")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseCompanyID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Fatalf("parser accepted nil UUID from %q", input)
		}
		parsed, parseErr := uuid.Parse(input)
		if parseErr != nil {
			t.Fatalf("parser accepted non-UUID input %q", input)
		}
		if uuid.UUID(id) != parsed {
			t.Fatalf("parsed id %s does not match input %q", id, input)
		}
	})
}
