package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/infrastructure/database"
	"github.com/nerrad567/webstone-core/internal/registry"
)

// Store saves and loads directory snapshots.
type Store interface {
	Save(ctx context.Context, s registry.State) error
	Load(ctx context.Context) (registry.State, error)
}

// SQLStore is a Store backed by the migrated SQLite database.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore creates a store over db. db must already be migrated.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Save replaces the stored snapshot with s.
func (st *SQLStore) Save(ctx context.Context, s registry.State) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for _, table := range []string{"group_members", "block_groups", "blocks", "registries", "user_contexts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for i, r := range s.Registries {
		if err := insertRegistry(ctx, tx, i, r); err != nil {
			return fmt.Errorf("saving registry %s: %w", r.ID, err)
		}
	}

	for owner, c := range s.Contexts {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_contexts (owner_id, context) VALUES (?, ?)",
			owner.String(), string(c),
		); err != nil {
			return fmt.Errorf("saving context for %s: %w", owner, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func insertRegistry(ctx context.Context, tx *sql.Tx, position int, r registry.RegistryState) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO registries (id, owner_name, passphrase_hash, position) VALUES (?, ?, ?, ?)",
		r.ID.String(), r.OwnerName, r.PassphraseHash, position,
	); err != nil {
		return err
	}

	for i, b := range r.Blocks {
		var groupID sql.NullString
		if b.GroupID != uuid.Nil {
			groupID = sql.NullString{String: b.GroupID.String(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO blocks (id, registry_id, name, powered, power, group_id, position) VALUES (?, ?, ?, ?, ?, ?, ?)",
			b.ID.String(), r.ID.String(), b.Name, b.Powered, b.Power, groupID, i,
		); err != nil {
			return fmt.Errorf("block %s: %w", b.ID, err)
		}
	}

	for i, g := range r.Groups {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO block_groups (id, registry_id, name, position) VALUES (?, ?, ?, ?)",
			g.ID.String(), r.ID.String(), g.Name, i,
		); err != nil {
			return fmt.Errorf("group %s: %w", g.ID, err)
		}
		for j, member := range g.MemberIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO group_members (group_id, block_id, position) VALUES (?, ?, ?)",
				g.ID.String(), member.String(), j,
			); err != nil {
				return fmt.Errorf("group %s member %s: %w", g.ID, member, err)
			}
		}
	}
	return nil
}

// Load reads the stored snapshot. An empty database yields an empty State.
func (st *SQLStore) Load(ctx context.Context) (registry.State, error) {
	s := registry.State{Contexts: make(map[uuid.UUID]registry.Context)}
	index := make(map[uuid.UUID]int)

	err := st.query(ctx, "SELECT id, owner_name, passphrase_hash FROM registries ORDER BY position",
		func(rows *sql.Rows) error {
			var (
				id string
				r  registry.RegistryState
			)
			if err := rows.Scan(&id, &r.OwnerName, &r.PassphraseHash); err != nil {
				return err
			}
			var err error
			if r.ID, err = parseID(id); err != nil {
				return err
			}
			r.Blocks = []registry.BlockState{}
			r.Groups = []registry.GroupState{}
			index[r.ID] = len(s.Registries)
			s.Registries = append(s.Registries, r)
			return nil
		})
	if err != nil {
		return registry.State{}, fmt.Errorf("loading registries: %w", err)
	}

	err = st.query(ctx, "SELECT id, registry_id, name, powered, power, group_id FROM blocks ORDER BY registry_id, position",
		func(rows *sql.Rows) error {
			var (
				id, regID string
				groupID   sql.NullString
				b         registry.BlockState
			)
			if err := rows.Scan(&id, &regID, &b.Name, &b.Powered, &b.Power, &groupID); err != nil {
				return err
			}
			i, err := lookup(index, regID)
			if err != nil {
				return err
			}
			if b.ID, err = parseID(id); err != nil {
				return err
			}
			if groupID.Valid {
				if b.GroupID, err = parseID(groupID.String); err != nil {
					return err
				}
			}
			s.Registries[i].Blocks = append(s.Registries[i].Blocks, b)
			return nil
		})
	if err != nil {
		return registry.State{}, fmt.Errorf("loading blocks: %w", err)
	}

	groups := make(map[uuid.UUID][2]int)
	err = st.query(ctx, "SELECT id, registry_id, name FROM block_groups ORDER BY registry_id, position",
		func(rows *sql.Rows) error {
			var (
				id, regID string
				g         registry.GroupState
			)
			if err := rows.Scan(&id, &regID, &g.Name); err != nil {
				return err
			}
			i, err := lookup(index, regID)
			if err != nil {
				return err
			}
			if g.ID, err = parseID(id); err != nil {
				return err
			}
			g.MemberIDs = []uuid.UUID{}
			groups[g.ID] = [2]int{i, len(s.Registries[i].Groups)}
			s.Registries[i].Groups = append(s.Registries[i].Groups, g)
			return nil
		})
	if err != nil {
		return registry.State{}, fmt.Errorf("loading groups: %w", err)
	}

	err = st.query(ctx, "SELECT group_id, block_id FROM group_members ORDER BY group_id, position",
		func(rows *sql.Rows) error {
			var groupID, blockID string
			if err := rows.Scan(&groupID, &blockID); err != nil {
				return err
			}
			gid, err := parseID(groupID)
			if err != nil {
				return err
			}
			bid, err := parseID(blockID)
			if err != nil {
				return err
			}
			pos, ok := groups[gid]
			if !ok {
				return nil
			}
			g := &s.Registries[pos[0]].Groups[pos[1]]
			g.MemberIDs = append(g.MemberIDs, bid)
			return nil
		})
	if err != nil {
		return registry.State{}, fmt.Errorf("loading group members: %w", err)
	}

	err = st.query(ctx, "SELECT owner_id, context FROM user_contexts",
		func(rows *sql.Rows) error {
			var owner, c string
			if err := rows.Scan(&owner, &c); err != nil {
				return err
			}
			id, err := parseID(owner)
			if err != nil {
				return err
			}
			parsed, err := registry.ParseContext(c)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrCorrupt, err)
			}
			s.Contexts[id] = parsed
			return nil
		})
	if err != nil {
		return registry.State{}, fmt.Errorf("loading contexts: %w", err)
	}

	return s, nil
}

// query runs q and calls scan for every row.
func (st *SQLStore) query(ctx context.Context, q string, scan func(*sql.Rows) error) error {
	rows, err := st.db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id %q: %w", ErrCorrupt, s, err)
	}
	return id, nil
}

func lookup(index map[uuid.UUID]int, registryID string) (int, error) {
	id, err := parseID(registryID)
	if err != nil {
		return 0, err
	}
	i, ok := index[id]
	if !ok {
		return 0, fmt.Errorf("%w: unknown registry %s", ErrCorrupt, id)
	}
	return i, nil
}
