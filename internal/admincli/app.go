// Package admincli implements the adminctl tool: it creates organizer and
// admin accounts directly in the database, bypassing self-registration.
// Accounts created this way are active immediately but unverified, so the
// first login asks the owner to change the initial password.
package admincli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/mail"

	"golang.org/x/crypto/bcrypt"

	"github.com/avezhnov/ctfdeck/internal/common"
	"github.com/avezhnov/ctfdeck/internal/dbx"
	"github.com/avezhnov/ctfdeck/internal/flagx"
	"github.com/avezhnov/ctfdeck/internal/server/config"
	"github.com/avezhnov/ctfdeck/internal/server/models"
	"github.com/avezhnov/ctfdeck/internal/server/repositories/repomanager"
)

type App struct {
	cfg   *config.Config
	db    dbx.DBTX
	repos repomanager.RepositoryManager
	in    *bufio.Reader
	out   io.Writer
}

func NewApp(cfg *config.Config, db dbx.DBTX, repos repomanager.RepositoryManager, in io.Reader, out io.Writer) *App {
	return &App{cfg: cfg, db: db, repos: repos, in: bufio.NewReader(in), out: out}
}

// Run dispatches the subcommand. Currently the only one is "create".
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: adminctl create [flags]")
	}

	switch args[0] {
	case "create":
		return a.createAccount(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *App) createAccount(ctx context.Context, args []string) error {
	args = flagx.FilterArgs(args, []string{"-role", "-u", "-e", "-f", "-l"})

	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(a.out)

	role := fs.String("role", models.UserTypeOrganizer, "account role: organizer or admin")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email address")
	firstName := fs.String("f", "", "first name")
	lastName := fs.String("l", "", "last name")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *role != models.UserTypeOrganizer && *role != models.UserTypeAdmin {
		return fmt.Errorf("role must be %q or %q", models.UserTypeOrganizer, models.UserTypeAdmin)
	}

	var err error
	if *username == "" {
		if *username, err = GetSimpleText(a.in, "Enter username", a.out); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = GetSimpleText(a.in, "Enter email", a.out); err != nil {
			return err
		}
	}
	if len(*username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if _, err := mail.ParseAddress(*email); err != nil {
		return fmt.Errorf("invalid email address %q", *email)
	}

	password, err := GetPassword(a.out, "Enter initial password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword(a.out, "Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	// bcrypt's input limit
	if len(password) > 72 {
		return errors.New("password must be at most 72 characters")
	}

	hash, err := bcrypt.GenerateFromPassword(password, a.cfg.BcryptCost)
	if err != nil {
		return err
	}

	user, err := a.repos.Users(a.db).Create(ctx, &models.User{
		Username:      *username,
		Email:         *email,
		FirstName:     *firstName,
		LastName:      *lastName,
		PasswordHash:  string(hash),
		Type:          *role,
		IsActive:      true,
		EmailVerified: false,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("an account with username %q or email %q already exists", *username, *email)
		}
		return err
	}

	fmt.Fprintf(a.out, "created %s account %s (%s)\n", user.Type, user.Username, user.ID)
	return nil
}
