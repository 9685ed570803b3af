package seedadmin

import (
	"fmt"
	"strings"

	"github.com/dchest/uniuri"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	cliapp "actiapp.dev/backend/cmd/app/cli"
	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/actid"
	"actiapp.dev/backend/internal/pkg/crypto"
	"actiapp.dev/backend/internal/repo"
)

type CommandDeps struct {
	fx.In

	Users  *repo.User
	Hasher *crypto.PasswordHasher
	Clock  clockwork.Clock
}

func Command() *cli.Command {
	return &cli.Command{
		Name:  "seed-admin",
		Usage: "create the first admin_general account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Value: "admin"},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "first-name", Value: "Admin"},
			&cli.StringFlag{Name: "last-name", Value: "General"},
			&cli.StringFlag{Name: "password", Usage: "generated and printed when omitted"},
		},
		Action: func(ctx *cli.Context) error {
			deps, stop := cliapp.Deps[CommandDeps]()
			defer stop()

			return run(ctx, deps)
		},
	}
}

func run(ctx *cli.Context, deps CommandDeps) error {
	username := ctx.String("username")
	email := strings.ToLower(strings.TrimSpace(ctx.String("email")))

	taken, err := deps.Users.IsUsernameOrEmailTaken(ctx.Context, username, email)
	if err != nil {
		return err
	}
	if taken {
		return errors.Errorf("username %q or email %q already in use", username, email)
	}

	password := ctx.String("password")
	generated := password == ""
	if generated {
		password = uniuri.NewLen(20)
	}
	if len(password) < constant.PasswordMinLength {
		return errors.Errorf("password must be at least %d characters", constant.PasswordMinLength)
	}

	hash, err := deps.Hasher.Hash(password)
	if err != nil {
		return err
	}

	now := deps.Clock.Now()
	user := &model.User{
		UserID:    actid.NewAt(now),
		Username:  username,
		Email:     email,
		FirstName: ctx.String("first-name"),
		LastName:  ctx.String("last-name"),
		Password:  hash,
		Role:      constant.RoleAdminGeneral,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := deps.Users.CreateUser(ctx.Context, user); err != nil {
		return errors.Wrap(err, "failed to create admin")
	}

	log.Info().
		Str("evt.name", "seed_admin.created").
		Str("userId", user.UserID).
		Str("username", username).
		Msg("admin_general account created")
	if generated {
		fmt.Printf("generated password for %s: %s\n", username, password)
	}

	return nil
}
