package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nerrad567/webstone-core/internal/auth"
	"github.com/nerrad567/webstone-core/internal/control"
	"github.com/nerrad567/webstone-core/internal/infrastructure/config"
	"github.com/nerrad567/webstone-core/internal/registry"
	"github.com/nerrad567/webstone-core/internal/snapshot"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [passphrase]",
		Short: "Print a bcrypt hash for security.passphrase_hash",
		Long: `Print a bcrypt hash of a passphrase, suitable for security.passphrase_hash
or WEBSTONE_PASSPHRASE_HASH. Without an argument the passphrase is read
from the first line of standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var passphrase string
			if len(args) == 1 {
				passphrase = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("reading passphrase: %w", err)
				}
				passphrase = strings.TrimRight(line, "\r\n")
			}
			if passphrase == "" {
				return errors.New("passphrase must not be empty")
			}
			hash, err := auth.HashPassphrase(passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newRegistryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and edit registries in the snapshot database",
		Long: `Inspect and edit registries in the snapshot database.

These commands work on the database directly. Run them while the server is
stopped; a running server overwrites the snapshot on its next save. A
running server takes the same actions on {prefix}/admin/... over MQTT.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDirectory(cmd.Context(), *configPath, false, func(svc *control.Service) error {
					return listRegistries(cmd.OutOrStdout(), svc.Directory())
				})
			},
		},
		&cobra.Command{
			Use:   "setpass <owner-id> <passphrase>",
			Short: "Create a user's registry if needed and set its passphrase",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				owner, err := parseOwner(args[0])
				if err != nil {
					return err
				}
				if args[1] == "" {
					return errors.New("passphrase must not be empty")
				}
				return withDirectory(cmd.Context(), *configPath, true, func(svc *control.Service) error {
					if err := svc.SetPassphrase(owner, args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Passphrase set for %s.\n", owner)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "genpass <owner-id>",
			Short: "Create a user's registry if needed and give it a random passphrase",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				owner, err := parseOwner(args[0])
				if err != nil {
					return err
				}
				return withDirectory(cmd.Context(), *configPath, true, func(svc *control.Service) error {
					passphrase, err := svc.GeneratePassphrase(owner)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Passphrase for %s: %s\n", owner, passphrase)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "context <owner-id> public|private",
			Short:     "Choose where a user's newly registered blocks go",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{"public", "private"},
			RunE: func(cmd *cobra.Command, args []string) error {
				owner, err := parseOwner(args[0])
				if err != nil {
					return err
				}
				var c registry.Context
				switch strings.ToLower(args[1]) {
				case "public":
					c = registry.ContextPublic
				case "private":
					c = registry.ContextPrivate
				default:
					return fmt.Errorf("context must be public or private, got %q", args[1])
				}
				return withDirectory(cmd.Context(), *configPath, true, func(svc *control.Service) error {
					svc.SetUserContext(owner, c)
					fmt.Fprintf(cmd.OutOrStdout(), "New blocks for %s go to the %s registry.\n", owner, strings.ToLower(string(c)))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every user registry and context",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDirectory(cmd.Context(), *configPath, true, func(svc *control.Service) error {
					svc.Clear()
					fmt.Fprintln(cmd.OutOrStdout(), "User registries cleared.")
					return nil
				})
			},
		},
	)
	return cmd
}

func parseOwner(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid owner id %q", s)
	}
	return id, nil
}

// withDirectory loads the snapshot, runs fn against a control service with
// no clients attached and, when save is set, writes the result back.
func withDirectory(ctx context.Context, configPath string, save bool, fn func(*control.Service) error) error {
	cfg, err := config.Load(getConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	//nolint:errcheck // Read-mostly CLI; a close error changes nothing
	defer db.Close()

	store := snapshot.NewSQLStore(db)
	dir := registry.NewDirectory()
	if err := snapshot.Load(ctx, store, dir); err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	if err := fn(control.New(dir, nil)); err != nil {
		return err
	}
	if !save {
		return nil
	}
	if err := store.Save(ctx, dir.State()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func listRegistries(w io.Writer, dir *registry.Directory) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBLOCKS\tGROUPS\tPROTECTED")
	for _, r := range dir.Registries() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%t\n",
			r.ID(), r.DisplayName(), len(r.Blocks()), len(r.Groups()), r.PassphraseHash() != "")
	}
	return tw.Flush()
}
