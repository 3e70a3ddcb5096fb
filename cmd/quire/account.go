package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	accountName     string
	accountPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register [login]",
	Short: "Create a local account and sign in",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		login := args[0]
		inst := openInstance(cmd)

		password, err := secret(accountPassword, "Password: ")
		if err != nil {
			fatal("Failed to read password", err)
		}

		name := accountName
		if name == "" {
			name = login
		}
		user, err := inst.Accounts.Register(context.Background(), name, login, password)
		if err != nil {
			fatal("Registration failed", err)
		}
		fmt.Printf("Registered and signed in as %s (%s)\n", user.Login, user.Username)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [login]",
	Short: "Sign in to a local account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)

		password, err := secret(accountPassword, "Password: ")
		if err != nil {
			fatal("Failed to read password", err)
		}

		user, err := inst.Accounts.Login(context.Background(), args[0], password)
		if err != nil {
			fatal("Login failed", err)
		}
		fmt.Printf("Signed in as %s (%s)\n", user.Login, user.Username)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		if err := inst.Accounts.Logout(context.Background()); err != nil {
			fatal("Logout failed", err)
		}
		fmt.Println("Signed out")
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in account",
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		user, ok := inst.Accounts.Current()
		if !ok {
			fmt.Println("Not signed in")
			return
		}
		fmt.Printf("%s (%s)\n", user.Login, user.Username)
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister [login]",
	Short: "Delete an account and every record it owns",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)

		password, err := secret(accountPassword, "Password: ")
		if err != nil {
			fatal("Failed to read password", err)
		}

		res, err := inst.DeleteAccount(context.Background(), args[0], password)
		if err != nil {
			fatal("Failed to delete account", err)
		}
		fmt.Printf("Deleted %s: %d notes, %d folders, %d summaries removed\n",
			args[0], res.Notes, res.Folders, res.Summaries)
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd, unregisterCmd} {
		c.Flags().StringVarP(&accountPassword, "password", "p", "", "Password (prompted when omitted)")
	}
	registerCmd.Flags().StringVarP(&accountName, "name", "n", "", "Display name (defaults to the login)")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd, unregisterCmd)
}
