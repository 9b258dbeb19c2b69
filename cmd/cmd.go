// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// runCommand starts the bot and the OAuth callback listener.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Start the bot and the OAuth callback server",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Run,
	}
}

// setupCommand initializes the config file and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and run database migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authURLCommand prints an authorization URL for a given identity.
func authURLCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth-url",
		Usage: "Print the Spotify authorization URL for a chat-user identity",
		Flags: []cli.Flag{configFlag()},
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "identity"},
		},
		Action: r.AuthURL,
	}
}

// configCommand inspects the effective configuration.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show the effective configuration (secrets redacted)",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: r.ShowConfig,
	}
}
