package registry

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

func populatedDirectory(t *testing.T) *Directory {
	t.Helper()
	d := NewDirectory()
	owner := uuid.New()
	r, _ := d.GetOrCreate(owner)
	r.SetOwnerName("Alex")
	if err := r.SetPassphrase("hunter2"); err != nil {
		t.Fatalf("SetPassphrase() error = %v", err)
	}

	g := NewGroup("doors")
	r.AddGroup(g)
	for i, name := range []string{"front", "back", "garage"} {
		b := NewBlock(uuid.New(), name, i%2 == 0, i*5)
		r.AddBlock(b)
		if i < 2 {
			g.AddBlock(b)
		}
	}
	d.Public().AddBlock(NewBlock(uuid.New(), "beacon", true, 15))
	d.SetUserContext(owner, ContextPublic)
	return d
}

func TestDirectory_StateRoundTrip(t *testing.T) {
	d := populatedDirectory(t)
	state := d.State()

	restored := NewDirectory()
	if err := restored.Restore(state); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if !reflect.DeepEqual(restored.State(), state) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", restored.State(), state)
	}
	if restored.Dirty() {
		t.Error("a freshly restored directory should not be dirty")
	}

	owner := state.Registries[1].ID
	r := restored.Registry(owner)
	if !r.ComparePassphrase("hunter2") {
		t.Error("restored passphrase hash should still verify")
	}
	if r.PassphraseHash() == "hunter2" {
		t.Error("plaintext must never be stored")
	}
}

func TestDirectory_StateIsPureRead(t *testing.T) {
	d := populatedDirectory(t)
	d.TakeDirty()

	_ = d.State()
	if d.Dirty() {
		t.Error("State() must not mark the directory dirty")
	}
}

func TestDirectory_RestoreRepairsMembership(t *testing.T) {
	owner := uuid.New()
	groupID := uuid.New()
	inList := uuid.New()
	missingFromList := uuid.New()
	strayGroup := uuid.New()
	disagrees := uuid.New()

	state := State{
		Registries: []RegistryState{{
			ID: owner,
			Groups: []GroupState{{
				ID:        groupID,
				Name:      "g",
				MemberIDs: []uuid.UUID{inList, disagrees, uuid.New()},
			}},
			Blocks: []BlockState{
				{ID: inList, Name: "a", GroupID: groupID},
				{ID: missingFromList, Name: "b", GroupID: groupID},
				{ID: strayGroup, Name: "c", GroupID: uuid.New()},
				{ID: disagrees, Name: "d"},
			},
		}},
	}

	d := NewDirectory()
	if err := d.Restore(state); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	r := d.Registry(owner)
	g := r.GroupByID(groupID)
	want := []uuid.UUID{inList, missingFromList}
	if !slices.Equal(g.MemberIDs(), want) {
		t.Errorf("members = %v, want %v", g.MemberIDs(), want)
	}
	if _, ok := r.BlockByID(strayGroup).GroupID(); ok {
		t.Error("a block naming a missing group should be ungrouped")
	}
	if _, ok := r.BlockByID(disagrees).GroupID(); ok {
		t.Error("a block not recording the group should stay ungrouped")
	}
	if d.Public() == nil {
		t.Error("public registry must exist after Restore()")
	}
}

func TestDirectory_RestoreRejectsDuplicates(t *testing.T) {
	id := uuid.New()
	state := State{Registries: []RegistryState{
		{ID: uuid.New(), Blocks: []BlockState{{ID: id}}},
		{ID: uuid.New(), Blocks: []BlockState{{ID: id}}},
	}}

	d := NewDirectory()
	before := d.State()
	err := d.Restore(state)
	if !errors.Is(err, ErrDuplicateBlock) {
		t.Fatalf("Restore() error = %v, want ErrDuplicateBlock", err)
	}
	if !reflect.DeepEqual(d.State(), before) {
		t.Error("failed Restore() must leave the directory unchanged")
	}
}

// TestDirectory_RestoreRoundTripProperty builds random directories and checks
// that State -> Restore -> State is the identity.
func TestDirectory_RestoreRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := NewDirectory()
		registries := []*Registry{d.Public()}
		for range rapid.IntRange(0, 3).Draw(rt, "owners") {
			r, _ := d.GetOrCreate(uuid.New())
			registries = append(registries, r)
		}

		for _, r := range registries {
			var groups []*Group
			for range rapid.IntRange(0, 3).Draw(rt, "groups") {
				g := NewGroup(rapid.StringMatching(`[a-z ]{0,10}`).Draw(rt, "groupName"))
				r.AddGroup(g)
				groups = append(groups, g)
			}
			for range rapid.IntRange(0, 5).Draw(rt, "blocks") {
				b := NewBlock(uuid.New(),
					rapid.StringMatching(`[A-Za-z]{1,12}`).Draw(rt, "name"),
					rapid.Bool().Draw(rt, "powered"),
					rapid.IntRange(-3, 20).Draw(rt, "power"),
				)
				r.AddBlock(b)
				if len(groups) > 0 && rapid.Bool().Draw(rt, "grouped") {
					rapid.SampledFrom(groups).Draw(rt, "group").AddBlock(b)
				}
			}
		}

		state := d.State()
		restored := NewDirectory()
		if err := restored.Restore(state); err != nil {
			rt.Fatalf("Restore() error = %v", err)
		}
		if !reflect.DeepEqual(restored.State(), state) {
			rt.Fatalf("round trip mismatch")
		}
	})
}
