package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opencurrents/currents-cli/internal/api"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the Currents server",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear all session state",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new Currents account",
	RunE:  runRegister,
}

func init() {
	loginCmd.Flags().String("email", "", "Email address (prompted if omitted)")
}

func promptLine(label string) string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(label)
	value, _ := reader.ReadString('\n')
	return strings.TrimSpace(value)
}

func promptPassword(label string) string {
	fmt.Print(label)
	passwordBytes, _ := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return string(passwordBytes)
}

func runLogin(cmd *cobra.Command, args []string) error {
	mgr, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = promptLine("Email: ")
	}
	password := promptPassword("Password: ")

	fmt.Println("Logging in...")
	user, err := mgr.Login(context.Background(), email, password)
	if err != nil {
		switch api.KindOf(err) {
		case api.KindInvalidCredentials:
			return fmt.Errorf("invalid email or password")
		case api.KindUnreachable:
			return fmt.Errorf("could not reach server: %w", err)
		}
		return err
	}

	mgr.WaitPassportSync()
	fmt.Printf("Logged in as %s\n", user.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	mgr, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := mgr.Logout(context.Background()); err != nil {
		return err
	}

	fmt.Println("Logged out.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	mgr, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	username := promptLine("Username: ")
	email := promptLine("Email: ")
	password := promptPassword("Password: ")
	confirm := promptPassword("Confirm Password: ")

	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	fmt.Println("Creating account...")
	user, err := mgr.Register(context.Background(), username, email, password)
	if err != nil {
		switch api.KindOf(err) {
		case api.KindDuplicateAccount:
			return fmt.Errorf("an account with that email already exists")
		case api.KindInvalidInput:
			return fmt.Errorf("registration rejected: %w", err)
		}
		return err
	}

	if mgr.User() != nil {
		mgr.WaitPassportSync()
		fmt.Printf("Account created, logged in as %s\n", user.Username)
	} else {
		fmt.Println("Account created. Run 'currents login' to sign in.")
	}
	return nil
}
