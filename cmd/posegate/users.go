package main

import (
	"errors"
	"fmt"

	cli "github.com/spf13/cobra"

	"github.com/MrCodeEU/posegate/pkg/storage"
)

var (
	listCmd = &cli.Command{
		Use:   "list",
		Short: "List registered users",
		Args:  cli.NoArgs,
		RunE:  runList,
	}

	removeCmd = &cli.Command{
		Use:   "remove <email>",
		Short: "Remove a registered user",
		Args:  cli.ExactArgs(1),
		RunE:  runRemove,
	}
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
}

func runList(cmd *cli.Command, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return listUsers(cmd, store)
}

func listUsers(cmd *cli.Command, store storage.Repository) error {
	out := cmd.OutOrStdout()

	emails, err := store.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(emails) == 0 {
		fmt.Fprintln(out, "No users registered.")
		return nil
	}

	fmt.Fprintln(out, "Registered users:")
	for _, email := range emails {
		rec, err := store.FindUser(cmd.Context(), email)
		if err != nil {
			return fmt.Errorf("failed to read user %s: %w", email, err)
		}
		fmt.Fprintf(out, "  - %s <%s> (registered %s)\n", rec.FullName(), rec.Email, rec.EnrolledAt.Format("2006-01-02"))
	}
	fmt.Fprintf(out, "\nTotal: %d user(s)\n", len(emails))
	return nil
}

func runRemove(cmd *cli.Command, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return removeUser(cmd, store, args[0])
}

func removeUser(cmd *cli.Command, store storage.Repository, email string) error {
	email = storage.NormalizeEmail(email)
	err := store.DeleteUser(cmd.Context(), email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return fmt.Errorf("user '%s' is not registered", email)
	} else if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User '%s' has been removed.\n", email)
	return nil
}
