// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// rootFlags are shared by every subcommand.
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("SPX_CONFIG"),
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the JSON response envelope",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// register returns the top-level commands.
func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		setupCommand(r),
		authCommand(r),
		syncCommand(r),
		playlistsCommand(r),
		opsCommand(r),
		historyCommand(r),
		serveCommand(r),
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the database",
		Action: r.SetupDatabase,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "List applied database migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the latest database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check the saved token and show the current user",
				Action: r.AuthStatus,
			},
		},
	}
}

// syncCommand mirrors the remote library into the local cache.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror your Spotify playlists into the local cache",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "Sync the playlist listing",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "details",
						Usage: "Also fetch missing details once the listing is synced",
					},
				},
				Action: r.SyncPlaylists,
			},
			{
				Name:   "details",
				Usage:  "Fetch durations, followers, and unlinked tracks for playlists that lack them",
				Action: r.SyncDetails,
			},
		},
	}
}

// playlistsCommand queries and annotates the cache.
func playlistsCommand(r *Runner) *cli.Command {
	filters := func() []cli.Flag {
		return []cli.Flag{
			&cli.BoolFlag{
				Name:  "owned",
				Usage: "Only playlists you own",
			},
			&cli.StringFlag{
				Name:  "tag",
				Usage: "Only playlists carrying this tag",
			},
		}
	}

	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Browse and tag cached playlists",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List cached playlists",
				Flags: append(filters(), &cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of playlists to show",
				}),
				Action: r.PlaylistsList,
			},
			{
				Name:      "show",
				Usage:     "Show cached playlists with their unlinked tracks",
				ArgsUsage: "<id>...",
				Action:    r.PlaylistsShow,
			},
			{
				Name:      "tag",
				Usage:     "Set or append local tags",
				ArgsUsage: "<id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tags",
						Usage: "Space separated tags; empty clears them",
					},
					&cli.BoolFlag{
						Name:  "append",
						Usage: "Add to the existing tags instead of replacing them",
					},
				},
				Action: r.PlaylistsTag,
			},
			{
				Name:  "export",
				Usage: "Export cached playlists to a file",
				Flags: append(filters(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md, or txt",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				),
				Action: r.PlaylistsExport,
			},
		},
	}
}

// opsCommand groups the mutating bulk operations.
func opsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ops",
		Usage: "Bulk playlist operations",
		Commands: []*cli.Command{
			{
				Name:      "delete",
				Usage:     "Delete playlists you own",
				ArgsUsage: "<id>...",
				Action:    r.OpsDelete,
			},
			{
				Name:      "merge",
				Usage:     "Merge playlists into a new private playlist",
				ArgsUsage: "<id> <id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Name of the merged playlist",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "dedupe",
						Usage: "Keep only the first occurrence of each track",
					},
					&cli.BoolFlag{
						Name:  "delete-sources",
						Usage: "Delete the source playlists afterwards",
					},
				},
				Action: r.OpsMerge,
			},
			{
				Name:  "dedupe",
				Usage: "Copy a playlist without its duplicate tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.OpsDedupe,
			},
			{
				Name:  "fix",
				Usage: "Find replacements for unlinked tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.OpsFix,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist you own",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.OpsRename,
			},
			{
				Name:      "bulk-rename",
				Usage:     "Replace a regular expression in playlist names",
				ArgsUsage: "<id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "find",
						Usage:    "Regular expression to match",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "replace",
						Usage: "Replacement; $1 refers to capture groups",
					},
				},
				Action: r.OpsBulkRename,
			},
		},
	}
}

// historyCommand prints the operation log.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent operations",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries",
				Value: 50,
			},
		},
		Action: r.History,
	}
}

// serveCommand exposes the commands over HTTP.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (defaults to server.port)",
			},
		},
		Action: r.Serve,
	}
}
