package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/attec/attec-api/internal/auth"
	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/repository"
)

// MinPasswordLen is enforced for every password set through the CLI.
const MinPasswordLen = 8

// userStore is the slice of the repository the user commands need.
type userStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetOrCreateUser(ctx context.Context, user *model.User) (*model.User, bool, error)
}

// newUser validates input and builds an active user with a hashed password.
func newUser(email, name, password string, role model.Role) (*model.User, error) {
	email = model.NormalizeEmail(email)
	var errs []error
	if email == "" || !strings.Contains(email, "@") {
		errs = append(errs, errors.New("a valid email is required"))
	}
	if len(password) < MinPasswordLen {
		errs = append(errs, fmt.Errorf("password must be at least %d characters", MinPasswordLen))
	}
	if !role.In(model.ValidRoles) {
		errs = append(errs, model.ErrInvalidRole)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	return &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         role,
		Active:       true,
	}, nil
}

// ensureAdmin creates the admin account unless a user with the email
// already exists. It never changes an existing user.
func ensureAdmin(ctx context.Context, store userStore, w io.Writer, email, name, password string) error {
	user, err := newUser(email, name, password, model.RoleAdmin)
	if err != nil {
		return err
	}

	got, created, err := store.GetOrCreateUser(ctx, user)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	if created {
		fmt.Fprintf(w, "created admin %s (%s)\n", got.Email, got.ID)
		return nil
	}
	fmt.Fprintf(w, "user %s already exists with role %s; left unchanged\n", got.Email, got.Role)
	return nil
}

func createAdminCmd(opts *globalOpts) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the initial admin user if it does not exist",
		Long: `Create the initial admin user if it does not exist.

Values default to ADMIN_EMAIL, ADMIN_NAME and ADMIN_PASSWORD. Without
ADMIN_PASSWORD the password is prompted for. Running it again is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = os.Getenv("ADMIN_EMAIL")
			}
			if name == "" {
				name = os.Getenv("ADMIN_NAME")
			}
			password := os.Getenv("ADMIN_PASSWORD")
			if password == "" {
				var err error
				password, err = promptNewPassword(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), dbTimeout)
			defer cancel()
			repo, err := opts.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			return ensureAdmin(ctx, repo, cmd.OutOrStdout(), email, name, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email (default $ADMIN_EMAIL)")
	cmd.Flags().StringVar(&name, "name", "", "Admin display name (default $ADMIN_NAME)")
	return cmd
}

func createUserCmd(opts *globalOpts) *cobra.Command {
	var email, name, role string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user with the given role",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := model.ParseRole(role)
			if err != nil {
				return fmt.Errorf("--role must be one of admin, editor, viewer")
			}

			var password string
			if passwordStdin {
				password, err = readLine(cmd.InOrStdin())
			} else {
				password, err = promptNewPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}

			user, err := newUser(email, name, password, r)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), dbTimeout)
			defer cancel()
			repo, err := opts.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleEditor), "Role: admin, editor or viewer")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// accountStore is what update-user needs from the credential store.
type accountStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Save(ctx context.Context, user *model.User) error
}

// userChanges holds the fields update-user was asked to change.
// Nil fields are left as stored.
type userChanges struct {
	name     *string
	role     *model.Role
	active   *bool
	password *string
}

func (c userChanges) empty() bool {
	return c.name == nil && c.role == nil && c.active == nil && c.password == nil
}

// updateUser applies changes to the user with the given email.
func updateUser(ctx context.Context, store accountStore, w io.Writer, email string, changes userChanges) error {
	if changes.empty() {
		return errors.New("nothing to update: pass --name, --role, --active or --password-stdin")
	}
	if changes.password != nil && len(*changes.password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}

	user, err := store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("no user with email %s", model.NormalizeEmail(email))
		}
		return fmt.Errorf("find user: %w", err)
	}

	if changes.name != nil {
		user.Name = strings.TrimSpace(*changes.name)
	}
	if changes.role != nil {
		user.Role = *changes.role
	}
	if changes.active != nil {
		user.Active = *changes.active
	}
	if changes.password != nil {
		hash, err := auth.HashPassword(*changes.password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}

	if err := store.Save(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	fmt.Fprintf(w, "updated %s: role=%s active=%t\n", user.Email, user.Role, user.Active)
	return nil
}

func updateUserCmd(opts *globalOpts) *cobra.Command {
	var email, name, role string
	var active, passwordStdin bool

	cmd := &cobra.Command{
		Use:   "update-user",
		Short: "Change a user's name, role, active flag or password",
		Long: `Change a user's name, role, active flag or password.

Only the flags given are changed. A deactivated user is refused on their
next request, even with a token issued earlier.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var changes userChanges
			flags := cmd.Flags()
			if flags.Changed("name") {
				changes.name = &name
			}
			if flags.Changed("role") {
				r, err := model.ParseRole(role)
				if err != nil {
					return fmt.Errorf("--role must be one of admin, editor, viewer")
				}
				changes.role = &r
			}
			if flags.Changed("active") {
				changes.active = &active
			}
			if passwordStdin {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				changes.password = &pw
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), dbTimeout)
			defer cancel()
			repo, err := opts.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			creds, err := auth.NewCredentialStore(repo)
			if err != nil {
				return err
			}
			return updateUser(ctx, creds, cmd.OutOrStdout(), email, changes)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&role, "role", "", "New role: admin, editor or viewer")
	cmd.Flags().BoolVar(&active, "active", true, "Set the active flag (--active=false disables sign-in)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read a new password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
