package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dreamer0iQ/0x40-cloud/internal/bytesize"
	"github.com/Dreamer0iQ/0x40-cloud/internal/cli/output"
	"github.com/Dreamer0iQ/0x40-cloud/internal/cli/prompt"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/config"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

var (
	userAddRole  string
	userAddQuota string
	userDelYes   bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
	Long: `Manage user accounts directly against the catalog database.

The server does not need to be running. Commands use the database
configured in the config file.

Examples:
  cloud40 user add alice
  cloud40 user add bob --role admin --quota 50Gi
  cloud40 user passwd alice
  cloud40 user quota alice 20Gi
  cloud40 user list
  cloud40 user delete alice`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user (prompts for password)",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"remove"},
	Short:   "Delete a user",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserDelete,
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users",
	Args:    cobra.NoArgs,
	RunE:    runUserList,
}

var userPasswdCmd = &cobra.Command{
	Use:     "passwd <username>",
	Aliases: []string{"password"},
	Short:   "Change user password",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserPasswd,
}

var userQuotaCmd = &cobra.Command{
	Use:   "quota <username> <limit>",
	Short: "Set a per-user quota override (0 restores the server default)",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserQuota,
}

func init() {
	userAddCmd.Flags().StringVar(&userAddRole, "role", "user", "Account role (user|admin)")
	userAddCmd.Flags().StringVar(&userAddQuota, "quota", "", "Quota override, e.g. 50Gi (default: server default)")
	userDeleteCmd.Flags().BoolVarP(&userDelYes, "yes", "y", false, "Skip the confirmation prompt")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userQuotaCmd)
}

// openCatalog loads the config and connects to the catalog database.
func openCatalog() (*store.GORMStore, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	catalog, err := store.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return catalog, nil
}

// commandContext bounds one-shot CLI database operations.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	var quotaBytes int64
	if userAddQuota != "" {
		size, err := bytesize.ParseByteSize(userAddQuota)
		if err != nil {
			return fmt.Errorf("invalid quota: %w", err)
		}
		quotaBytes = size.Int64()
	}

	password, err := prompt.NewPassword(fmt.Sprintf("Password for %s", username), 8)
	if err != nil {
		return err
	}

	catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()

	hash, err := models.HashPassword(password)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()
	err = catalog.CreateUser(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         userAddRole,
		QuotaBytes:   quotaBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("User %q created\n", username)
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	username := args[0]
	if username == models.AdminUsername {
		return fmt.Errorf("the bootstrap admin account cannot be deleted")
	}

	if !userDelYes {
		ok, err := prompt.Confirm(fmt.Sprintf("Delete user %q", username), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted")
			return nil
		}
	}

	catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()

	ctx, cancel := commandContext()
	defer cancel()
	if err := catalog.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Printf("User %q deleted\n", username)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()

	ctx, cancel := commandContext()
	defer cancel()
	users, err := catalog.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	table := output.NewTable("Username", "Role", "Quota", "Last Login")
	for _, u := range users {
		quota := "default"
		if u.QuotaBytes > 0 {
			quota = bytesize.ByteSize(u.QuotaBytes).String()
		}
		lastLogin := "never"
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.Format(time.RFC3339)
		}
		table.AddRow(u.Username, u.Role, quota, lastLogin)
	}
	table.Render(os.Stdout)
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	password, err := prompt.NewPassword(fmt.Sprintf("New password for %s", username), 8)
	if err != nil {
		return err
	}

	catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()

	ctx, cancel := commandContext()
	defer cancel()
	if err := catalog.UpdatePassword(ctx, username, password); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Printf("Password updated for %q\n", username)
	return nil
}

func runUserQuota(cmd *cobra.Command, args []string) error {
	username := args[0]

	size, err := bytesize.ParseByteSize(args[1])
	if err != nil {
		return fmt.Errorf("invalid quota: %w", err)
	}

	catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()

	ctx, cancel := commandContext()
	defer cancel()
	if err := catalog.SetUserQuota(ctx, username, size.Int64()); err != nil {
		return fmt.Errorf("failed to set quota: %w", err)
	}

	if size == 0 {
		fmt.Printf("Quota for %q restored to the server default\n", username)
	} else {
		fmt.Printf("Quota for %q set to %s\n", username, size)
	}
	return nil
}
