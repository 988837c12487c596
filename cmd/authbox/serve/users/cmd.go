package users

import (
	"github.com/andrebq/authbox/internal/cmdflags"
	"github.com/andrebq/authbox/internal/httpserver"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/password"
	"github.com/andrebq/authbox/userdb"
	"github.com/andrebq/authbox/usersvc"
	"github.com/andrebq/authbox/usersvc/api"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var dbPath, hasherName, cookieName string
	bindAddr := "0.0.0.0:5001"
	return &cli.Command{
		Name:  "users",
		Usage: "Start the user authentication service (registration, login, password reset)",
		Flags: []cli.Flag{
			cmdflags.UserDB(&dbPath),
			cmdflags.Hasher(&hasherName),
			cmdflags.SessionName(&cookieName),
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind the user service",
				Value:       bindAddr,
				Destination: &bindAddr,
			},
		},
		Action: func(ctx *cli.Context) error {
			hasher, err := password.ByName(hasherName)
			if err != nil {
				return err
			}
			db, err := userdb.Open(ctx.Context, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			handler, err := api.AsHandler(ctx.Context, api.Config{
				Auth:       usersvc.New(db, hasher),
				CookieName: cookieName,
			})
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			return httpserver.Serve(ctx.Context, bindAddr, logutil.Middleware(log, handler))
		},
	}
}
