package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hcm/internal/household/models"
)

func TestHeadConflict(t *testing.T) {
	onFile := []models.HouseholdMember{{ID: "m1", HouseholdID: "h1", IsHeadOfHousehold: true}}

	tests := []struct {
		name      string
		memberID  string
		onFile    []models.HouseholdMember
		releasing map[string]bool
		claimed   bool
		want      bool
	}{
		{name: "no head on file", memberID: "", want: false},
		{name: "different head on file", memberID: "", onFile: onFile, want: true},
		{name: "member is the head on file", memberID: "m1", onFile: onFile, want: false},
		{name: "head on file steps down", memberID: "m2", onFile: onFile, releasing: map[string]bool{"m1": true}, want: false},
		{name: "earlier claim in batch", memberID: "", claimed: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, headConflict(tt.memberID, tt.onFile, tt.releasing, tt.claimed))
		})
	}
}

func TestInvalidRelationship(t *testing.T) {
	tests := []struct {
		name string
		rel  models.Relationship
		want bool
	}{
		{name: "no relative", rel: models.Relationship{}, want: true},
		{name: "relative is self by id", rel: models.Relationship{RelativeID: "m1"}, want: true},
		{name: "relative is self by client reference", rel: models.Relationship{RelativeClientReferenceID: "c1"}, want: true},
		{name: "self id mismatch", rel: models.Relationship{SelfID: "other", RelativeID: "m2"}, want: true},
		{name: "self client reference mismatch", rel: models.Relationship{SelfClientReferenceID: "other", RelativeID: "m2"}, want: true},
		{name: "valid", rel: models.Relationship{SelfID: "m1", RelativeClientReferenceID: "c2"}, want: false},
		{name: "self omitted", rel: models.Relationship{RelativeID: "m2"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := models.HouseholdMember{ID: "m1", ClientReferenceID: "c1", MemberRelationships: []models.Relationship{tt.rel}}
			assert.Equal(t, tt.want, invalidRelationship(m))
		})
	}
}
