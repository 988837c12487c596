package router

import (
	"net/url"

	"github.com/andrebq/authbox/internal/frontproxy"
	"github.com/andrebq/authbox/internal/httpserver"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:5080"
	apiEndpoint := "http://localhost:5000/"
	usersEndpoint := "http://localhost:5001/"
	return &cli.Command{
		Name:  "router",
		Usage: "Start a reverse proxy exposing the api and the user service on a single address",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind for incoming request",
				Destination: &bindAddr,
				Value:       bindAddr,
			},
			&cli.StringFlag{
				Name:        "api-endpoint",
				Usage:       "Base endpoint of the gated api (receives /api/*)",
				Destination: &apiEndpoint,
				Value:       apiEndpoint,
			},
			&cli.StringFlag{
				Name:        "users-endpoint",
				Usage:       "Base endpoint of the user service (receives everything else, empty disables it)",
				Destination: &usersEndpoint,
				Value:       usersEndpoint,
			},
		},
		Action: func(ctx *cli.Context) error {
			apiURL, err := url.Parse(apiEndpoint)
			if err != nil {
				return err
			}
			var usersURL *url.URL
			if usersEndpoint != "" {
				usersURL, err = url.Parse(usersEndpoint)
				if err != nil {
					return err
				}
			}
			handler, err := frontproxy.AsHandler(ctx.Context, apiURL, usersURL)
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			return httpserver.Serve(ctx.Context, bindAddr, logutil.Middleware(log, handler))
		},
	}
}
