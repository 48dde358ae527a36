package cmd

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	auth "github.com/hireloop/portal-auth"
	"github.com/hireloop/portal-auth/integration"
	"github.com/hireloop/portal-auth/internal/config"
	"github.com/hireloop/portal-auth/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the super admin and an optional client organization",
	Long: `Create the platform super admin and, when --org-code is given, a client
organization with its client_admin. Ids are derived from the email or org
code so running seed twice is harmless.`,
	RunE: runSeed,
}

type seedOptions struct {
	AdminEmail     string
	AdminPassword  string
	OrgCode        string
	OrgName        string
	ClientEmail    string
	ClientPassword string
	Connected      bool
}

var seedOpts seedOptions

func init() {
	seedCmd.Flags().StringVar(&seedOpts.AdminEmail, "admin-email", "admin@portal.local", "Super admin email")
	seedCmd.Flags().StringVar(&seedOpts.AdminPassword, "admin-password", "", "Super admin password")
	seedCmd.Flags().StringVar(&seedOpts.OrgCode, "org-code", "", "Client organization code")
	seedCmd.Flags().StringVar(&seedOpts.OrgName, "org-name", "", "Client organization name")
	seedCmd.Flags().StringVar(&seedOpts.ClientEmail, "client-email", "", "client_admin email")
	seedCmd.Flags().StringVar(&seedOpts.ClientPassword, "client-password", "", "client_admin password")
	seedCmd.Flags().BoolVar(&seedOpts.Connected, "greenhouse-connected", false, "Mark the greenhouse integration as connected")
	seedCmd.MarkFlagRequired("admin-password")

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}

	report, err := seed(ctx, db, seedOpts)
	if err != nil {
		return err
	}

	for _, line := range report {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

// seed creates the requested records in one transaction and returns one
// line per record
func seed(ctx context.Context, db *bun.DB, opts seedOptions) ([]string, error) {
	if len(opts.AdminPassword) < auth.MinPasswordLength {
		return nil, fmt.Errorf("admin password must be at least %d characters", auth.MinPasswordLength)
	}
	if opts.ClientEmail != "" && len(opts.ClientPassword) < auth.MinPasswordLength {
		return nil, fmt.Errorf("client password must be at least %d characters", auth.MinPasswordLength)
	}

	repo := auth.NewRepositoryManager(db)
	var report []string

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		line, err := seedUser(ctx, tx, repo, opts.AdminEmail, opts.AdminPassword, auth.RoleAdmin, uuid.Nil, "Platform", "Admin")
		if err != nil {
			return err
		}
		report = append(report, line)

		if opts.OrgCode == "" {
			return nil
		}

		org, line, err := seedOrg(ctx, tx, repo, opts.OrgCode, opts.OrgName)
		if err != nil {
			return err
		}
		report = append(report, line)

		if opts.Connected {
			if err := integration.NewStore(tx).SetConnected(ctx, org.ID, integration.Greenhouse, true); err != nil {
				return err
			}
			report = append(report, fmt.Sprintf("integration %s connected for %s", integration.Greenhouse, org.OrgCode))
		}

		if opts.ClientEmail == "" {
			return nil
		}

		line, err = seedUser(ctx, tx, repo, opts.ClientEmail, opts.ClientPassword, auth.RoleClientAdmin, org.ID, "Client", "Admin")
		if err != nil {
			return err
		}
		report = append(report, line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func seedOrg(ctx context.Context, tx bun.IDB, repo auth.RepositoryManager, code, name string) (*auth.Organization, string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" {
		name = code
	}

	existing, err := repo.Organizations().GetByCodeTx(ctx, tx, code)
	if err == nil {
		return existing, fmt.Sprintf("organization %s exists (%s)", code, existing.ID), nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, "", err
	}

	id, err := hashid.NewUUID("org:" + code)
	if err != nil {
		return nil, "", err
	}

	org, err := repo.Organizations().CreateTx(ctx, tx, &auth.Organization{ID: id, OrgCode: code, Name: name})
	if err != nil {
		return nil, "", err
	}
	return org, fmt.Sprintf("organization %s created (%s)", code, org.ID), nil
}

func seedUser(ctx context.Context, tx bun.IDB, repo auth.RepositoryManager, email, password, role string, orgID uuid.UUID, first, last string) (string, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%s email is required", role)
	}

	existing, err := repo.Users().FindByEmailTx(ctx, tx, email)
	if err == nil {
		return fmt.Sprintf("user %s exists (%s)", email, existing.ID), nil
	}
	if !repository.IsRecordNotFound(err) {
		return "", err
	}

	id, err := hashid.NewUUID(email)
	if err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	user, err := repo.Users().CreateTx(ctx, tx, &auth.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		OrgID:        orgID,
		Status:       auth.UserStatusActive,
		FirstName:    first,
		LastName:     last,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("user %s created as %s (%s)", email, role, user.ID), nil
}
