package command

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/hostbridge/internal/assetproto"
	"github.com/yndnr/hostbridge/internal/telemetry/logger"
)

// AssetCommand returns the asset subcommand group.
func AssetCommand() *cli.Command {
	return &cli.Command{
		Name:  "asset",
		Usage: "Bundled application asset commands",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Fetch an asset: URL through the protocol handler",
				ArgsUsage: "<asset:/path>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the body to a file instead of stdout",
					},
				},
				Action: assetGet,
			},
		},
	}
}

func assetGet(c *cli.Context) error {
	env := GetEnv(c)
	if c.NArg() != 1 {
		return errors.New("asset get takes exactly one URL")
	}

	adapter, err := env.Platform()
	if err != nil {
		return err
	}

	transport := &http.Transport{}
	var reg assetproto.Registry
	if err := reg.Register(transport, adapter.AssetStore, assetproto.WithLogger(env.Slog())); err != nil {
		return err
	}

	ctx := logger.WithRequestID(c.Context, ulid.Make().String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Args().First(), nil)
	if err != nil {
		return err
	}
	resp, err := (&http.Client{Transport: transport}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("asset %s: %s", req.URL, resp.Status)
	}

	w := env.Out
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
