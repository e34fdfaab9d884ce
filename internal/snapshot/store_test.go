package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/nerrad567/webstone-core/internal/infrastructure/database"
	"github.com/nerrad567/webstone-core/internal/registry"
	_ "github.com/nerrad567/webstone-core/migrations"
)

// openStore creates a migrated store in a temp directory.
func openStore(t testing.TB, dir string) *SQLStore {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(dir, "webstone.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLStore(db)
}

// sampleDirectory has a protected user registry with grouped and
// ungrouped blocks, plus a public block.
func sampleDirectory(t *testing.T) *registry.Directory {
	t.Helper()
	d := registry.NewDirectory()
	owner := uuid.New()

	r, _ := d.GetOrCreate(owner)
	r.SetOwnerName("alice")
	r.SetPassphraseHash("$2a$12$abcdefghijklmnopqrstuuQ8Tq8lQ1rRr2Vd4Ck6bB0a3mM7J1W2e")

	g1 := registry.NewGroup("kitchen")
	g2 := registry.NewGroup("empty")
	r.AddGroup(g1)
	r.AddGroup(g2)
	for i, name := range []string{"lamp", "fan", "door"} {
		b := registry.NewBlock(uuid.New(), name, i%2 == 0, i*5)
		r.AddBlock(b)
		if i < 2 {
			g1.AddBlock(b)
		}
	}

	d.Public().AddBlock(registry.NewBlock(uuid.New(), "gate", true, 15))
	d.SetUserContext(owner, registry.ContextPrivate)
	d.SetUserContext(uuid.New(), registry.ContextPublic)
	return d
}

func TestSQLStore_RoundTrip(t *testing.T) {
	store := openStore(t, t.TempDir())
	ctx := context.Background()
	want := sampleDirectory(t).State()

	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() =\n%+v\nwant\n%+v", got, want)
	}

	restored := registry.NewDirectory()
	if err := restored.Restore(got); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !reflect.DeepEqual(restored.State(), want) {
		t.Error("restored directory differs from the original")
	}
}

func TestSQLStore_SaveReplaces(t *testing.T) {
	store := openStore(t, t.TempDir())
	ctx := context.Background()

	if err := store.Save(ctx, sampleDirectory(t).State()); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	want := registry.NewDirectory().State()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want only the empty public registry", got)
	}
}

func TestSQLStore_LoadEmpty(t *testing.T) {
	store := openStore(t, t.TempDir())

	s, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.Registries) != 0 || len(s.Contexts) != 0 {
		t.Errorf("Load() on empty database = %+v", s)
	}

	d := registry.NewDirectory()
	if err := Load(context.Background(), store, d); err != nil {
		t.Fatalf("Load() into directory error = %v", err)
	}
	if d.Public() == nil {
		t.Error("public registry missing after loading an empty snapshot")
	}
}

func TestSQLStore_LoadCorrupt(t *testing.T) {
	store := openStore(t, t.TempDir())
	ctx := context.Background()

	if _, err := store.db.ExecContext(ctx,
		"INSERT INTO registries (id, owner_name, passphrase_hash, position) VALUES ('not-a-uuid', '', '', 0)",
	); err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}

	if _, err := store.Load(ctx); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestSQLStore_RoundTripProperty(t *testing.T) {
	store := openStore(t, t.TempDir())
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		d := registry.NewDirectory()
		owners := rapid.IntRange(0, 3).Draw(rt, "owners")
		regs := []*registry.Registry{d.Public()}
		for range owners {
			r, _ := d.GetOrCreate(uuid.New())
			regs = append(regs, r)
		}

		for _, r := range regs {
			groups := rapid.IntRange(0, 3).Draw(rt, "groups")
			for range groups {
				r.AddGroup(registry.NewGroup(rapid.StringMatching(`[A-Za-z0-9 ]{0,12}`).Draw(rt, "group")))
			}
			blocks := rapid.IntRange(0, 6).Draw(rt, "blocks")
			for range blocks {
				b := registry.NewBlock(uuid.New(),
					rapid.StringMatching(`[A-Za-z0-9 ]{0,12}`).Draw(rt, "name"),
					rapid.Bool().Draw(rt, "powered"),
					rapid.IntRange(-5, 20).Draw(rt, "power"))
				r.AddBlock(b)
				if gs := r.Groups(); len(gs) > 0 {
					if pick := rapid.IntRange(-1, len(gs)-1).Draw(rt, "group"); pick >= 0 {
						gs[pick].AddBlock(b)
					}
				}
			}
		}

		want := d.State()
		if err := store.Save(ctx, want); err != nil {
			rt.Fatalf("Save() error = %v", err)
		}
		got, err := store.Load(ctx)
		if err != nil {
			rt.Fatalf("Load() error = %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			rt.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
	})
}
