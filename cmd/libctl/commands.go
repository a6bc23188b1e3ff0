package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/bootstrap"
	loanRepo "anoa.com/librarydesk/internal/modules/loan/repository"
	loanService "anoa.com/librarydesk/internal/modules/loan/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootstrap.Migrate(a.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var withAccounts bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample catalog and demo accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootstrap.Migrate(a.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := bootstrap.SeedSampleCatalog(cmd.Context(), a.db); err != nil {
				return err
			}
			if withAccounts {
				if err := bootstrap.SeedDemoAccounts(a.db); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "seed complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withAccounts, "accounts", true, "also create the demo admin and user accounts")
	return cmd
}

func newCreateAdminCmd(a *app) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			created, err := bootstrap.SeedAdminUser(a.db, name, email, password)
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("a user with email %s already exists", email)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check that book status agrees with active loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := loanService.NewLoanService(loanRepo.NewLoanRepository(a.db), nil, loanService.Options{
				LoanPeriod: a.cfg.LoanPeriod,
			})

			report, err := svc.Audit(cmd.Context(), access.SystemActor())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.Consistent {
				return fmt.Errorf("%d discrepancies found", len(report.Discrepancies))
			}
			return nil
		},
	}
}

// readPassword reads without echo when stdin is a terminal and falls back to
// a plain line read for piped input.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.OutOrStdout(), prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
