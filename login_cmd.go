package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/dgnsrekt/ttsconsole/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginUser string

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Store gateway admin credentials",
		Long: paragraph(fmt.Sprintf("\n%s to the gateway admin API. The password is read from the terminal, "+
			"or from stdin when it is not a terminal. The credential is checked against the provider list "+
			"before it is kept.", keyword("Sign in"))),
		Example: paragraph("ttsconsole login --user admin\necho $PASSWORD | ttsconsole login --user admin"),
		Args:    cobra.NoArgs,
		RunE:    runLogin,
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored gateway credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newSession()
			if err != nil {
				return err
			}
			if err := s.Logout(); err != nil {
				return fmt.Errorf("unable to log out: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
)

func init() {
	loginCmd.Flags().StringVarP(&loginUser, "user", "u", "admin", "admin user name")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	password, err := readPassword(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	if err := a.session.Login(loginUser, password); err != nil {
		return fmt.Errorf("unable to log in: %w", err)
	}

	// A rejected credential expires the session, which clears it again.
	if _, err := a.client.Providers(cmd.Context()); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return errors.New("invalid user or password")
		}
		return fmt.Errorf("unable to reach gateway: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Logged in as "+loginUser+"."))
	return nil
}

func readPassword(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("unable to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("unable to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", session.ErrEmptyCredentials
	}
	return line, nil
}
