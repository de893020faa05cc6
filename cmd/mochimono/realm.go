package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayane-t/mochimono/internal/model"
)

var realmCmd = &cobra.Command{
	Use:   "realm",
	Short: "Manage sharing realms and membership",
}

var realmCreateFlags struct {
	description string
}

var realmCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a realm owned by the acting user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		r, err := a.store.CreateRealm(cmd.Context(), args[0], realmCreateFlags.description, a.scope().UserID)
		if err != nil {
			return err
		}
		fmt.Println(r.ID)
		return nil
	},
}

var realmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List realms the acting user belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		realms, err := a.store.ListRealms(cmd.Context(), a.scope().UserID)
		if err != nil {
			return err
		}
		for _, r := range realms {
			fmt.Printf("%s  %s", r.ID, r.Name)
			if r.Description != "" {
				fmt.Printf("  (%s)", r.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

var inviteRole string

var realmInviteCmd = &cobra.Command{
	Use:   "invite <realm-id> <user-id>",
	Short: "Invite a user into a realm (owner only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		m, err := a.store.Invite(cmd.Context(), a.scope().UserID, args[0], args[1], model.Role(inviteRole))
		if err != nil {
			return err
		}
		fmt.Printf("invited %s as %s (pending)\n", m.UserID, m.Role)
		return nil
	},
}

var realmAcceptCmd = &cobra.Command{
	Use:   "accept <realm-id>",
	Short: "Accept a pending invitation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		m, err := a.store.Accept(cmd.Context(), args[0], a.scope().UserID)
		if err != nil {
			return err
		}
		fmt.Printf("joined realm %s as %s\n", m.RealmID, m.Role)
		return nil
	},
}

var realmMembersCmd = &cobra.Command{
	Use:   "members <realm-id>",
	Short: "List realm members, pending invitations included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		members, err := a.store.ListMembers(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, m := range members {
			status := "pending"
			if m.Accepted() {
				status = "accepted"
			}
			fmt.Printf("%s  %s  %s\n", m.UserID, m.Role, status)
		}
		return nil
	},
}

var realmRemoveCmd = &cobra.Command{
	Use:   "remove <realm-id> <user-id>",
	Short: "Remove a member from a realm (owner only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return a.store.RemoveMember(cmd.Context(), a.scope().UserID, args[0], args[1])
	},
}

var realmDeleteCmd = &cobra.Command{
	Use:   "delete <realm-id>",
	Short: "Delete a realm; its items become private (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return a.store.DeleteRealm(cmd.Context(), a.scope().UserID, args[0])
	},
}

func init() {
	realmCreateCmd.Flags().StringVar(&realmCreateFlags.description, "desc", "", "realm description")
	realmInviteCmd.Flags().StringVar(&inviteRole, "role", string(model.RoleMember), "member role (owner|member)")

	realmCmd.AddCommand(realmCreateCmd, realmListCmd, realmInviteCmd,
		realmAcceptCmd, realmMembersCmd, realmRemoveCmd, realmDeleteCmd)
	rootCmd.AddCommand(realmCmd)
}
