package users

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andrebq/authbox/internal/cmdflags"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/password"
	"github.com/andrebq/authbox/userdb"
	"github.com/andrebq/authbox/usersvc"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var db *userdb.DB
	var dbPath string
	return &cli.Command{
		Name:  "users",
		Usage: "Manage the accounts stored in the user database",
		Flags: []cli.Flag{
			cmdflags.UserDB(&dbPath),
		},
		Before: func(ctx *cli.Context) error {
			var err error
			db, err = userdb.Open(ctx.Context, dbPath)
			return err
		},
		After: func(ctx *cli.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
		Subcommands: []*cli.Command{
			registerCmd(&db),
			listCmd(&db),
			sessionsCmd(&db),
		},
	}
}

func registerCmd(db **userdb.DB) *cli.Command {
	var email, firstName, lastName, hasherName string
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new user (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "Email of the user to register",
				Destination: &email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "first-name",
				Destination: &firstName,
			},
			&cli.StringFlag{
				Name:        "last-name",
				Destination: &lastName,
			},
			cmdflags.Hasher(&hasherName),
		},
		Action: func(ctx *cli.Context) error {
			pw, err := readPassword(os.Stdin)
			if err != nil {
				return err
			}
			hasher, err := password.ByName(hasherName)
			if err != nil {
				return err
			}
			u, err := usersvc.New(*db, hasher).RegisterUser(ctx.Context, email, pw)
			if err != nil {
				return err
			}
			var changes []userdb.Change
			if firstName != "" {
				changes = append(changes, userdb.SetFirstName(firstName))
			}
			if lastName != "" {
				changes = append(changes, userdb.SetLastName(lastName))
			}
			if err := (*db).UpdateUser(ctx.Context, u.ID, changes...); err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Str("user.id", u.ID).Msg("User registered")
			return nil
		},
	}
}

func readPassword(in io.Reader) (string, error) {
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if sc.Err() != nil {
			return "", sc.Err()
		}
		return "", errors.New("missing password from stdin")
	}
	pw := strings.TrimSpace(sc.Text())
	if len(pw) == 0 {
		return "", errors.New("missing password from stdin")
	}
	return pw, nil
}

func listCmd(db **userdb.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List registered users",
		Action: func(ctx *cli.Context) error {
			users, err := (*db).ListUsers(ctx.Context)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintf(ctx.App.Writer, "%v\t%v\t%v\n", u.ID, u.Email, u.DisplayName())
			}
			return nil
		},
	}
}

func sessionsCmd(db **userdb.DB) *cli.Command {
	var email string
	return &cli.Command{
		Name:  "sessions",
		Usage: "List the persisted sessions of a user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Destination: &email,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			u, err := (*db).FindUserBy(ctx.Context, userdb.ByEmail, email)
			if err != nil {
				return err
			}
			records, err := (*db).SessionRecords().SessionsOf(ctx.Context, u.ID)
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Fprintf(ctx.App.Writer, "%v\t%v\n", rec.ID, rec.CreatedAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
