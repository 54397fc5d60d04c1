package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/openspace-ehr/phiguard/cmd/app/commands"
	"github.com/openspace-ehr/phiguard/internal/app"
	"github.com/openspace-ehr/phiguard/internal/config"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiUseCase "github.com/openspace-ehr/phiguard/internal/phi/usecase"
)

func getPHICommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-encryption-key",
			Usage: "Generate a new master secret for PHI field encryption",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "Optional KMS key URI to wrap the secret (e.g., awskms:///alias/..., hashivault://...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateEncryptionKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:      "encrypt-field",
			Usage:     "Encrypt a value as a stored PHI field",
			ArgsUsage: "<value>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Value:   string(phiDomain.FieldTypeString),
					Usage:   "Field type marker: string, json, int, float or date",
				},
				&cli.StringFlag{
					Name:  "scope",
					Usage: "Blind index scope; makes the field searchable by equality",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				encryption, err := container.EncryptionUseCase()
				if err != nil {
					return err
				}

				return commands.RunEncryptField(
					ctx,
					encryption,
					commands.DefaultIO().Writer,
					cmd.Args().First(),
					cmd.String("type"),
					cmd.String("scope"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:      "decrypt-field",
			Usage:     "Decrypt a stored PHI field",
			ArgsUsage: "<stored value>",
			Flags:     []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				encryption, err := container.EncryptionUseCase()
				if err != nil {
					return err
				}

				return commands.RunDecryptField(
					ctx,
					encryption,
					commands.DefaultIO().Writer,
					cmd.Args().First(),
					cmd.String("format"),
				)
			},
		},
		{
			Name:      "blind-index",
			Usage:     "Compute the blind index used to search an encrypted column",
			ArgsUsage: "<value>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "scope",
					Required: true,
					Usage:    "Blind index scope, usually table.column",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				encryption, err := container.EncryptionUseCase()
				if err != nil {
					return err
				}

				return commands.RunBlindIndex(
					ctx,
					encryption,
					commands.DefaultIO().Writer,
					cmd.Args().First(),
					cmd.String("scope"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "phi-columns",
			Usage: "Analyze, encrypt and verify PHI columns of existing tables",
			Commands: []*cli.Command{
				{
					Name:      "analyze",
					Usage:     "Count encrypted and plaintext cells per column",
					ArgsUsage: "<table.column[:key_column]>...",
					Flags:     []cli.Flag{formatFlag()},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						cfg := config.Load()
						container := app.NewContainer(cfg)
						defer func() { _ = container.Shutdown(ctx) }()

						useCase, err := container.ColumnMigrationUseCase()
						if err != nil {
							return err
						}

						return commands.RunAnalyzeColumns(
							ctx,
							useCase,
							commands.DefaultIO().Writer,
							cmd.Args().Slice(),
							cmd.String("format"),
						)
					},
				},
				{
					Name:      "encrypt",
					Usage:     "Encrypt plaintext cells in place, one transaction per batch",
					ArgsUsage: "<table.column[:key_column]>...",
					Flags: []cli.Flag{
						&cli.IntFlag{
							Name:    "batch-size",
							Aliases: []string{"b"},
							Value:   100,
							Usage:   "Rows per transaction",
						},
						&cli.BoolFlag{
							Name:    "dry-run",
							Aliases: []string{"n"},
							Usage:   "Report what would be encrypted without writing",
						},
						&cli.BoolFlag{
							Name:  "searchable",
							Usage: "Prefix each value with a blind index scoped to table.column",
						},
						&cli.StringFlag{
							Name:    "type",
							Aliases: []string{"t"},
							Value:   string(phiDomain.FieldTypeString),
							Usage:   "Field type marker: string, json, int, float or date",
						},
						formatFlag(),
					},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						cfg := config.Load()
						container := app.NewContainer(cfg)
						defer func() { _ = container.Shutdown(ctx) }()

						useCase, err := container.ColumnMigrationUseCase()
						if err != nil {
							return err
						}

						return commands.RunEncryptColumns(
							ctx,
							useCase,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.Args().Slice(),
							phiUseCase.EncryptColumnOptions{
								BatchSize:  int(cmd.Int("batch-size")),
								DryRun:     cmd.Bool("dry-run"),
								Searchable: cmd.Bool("searchable"),
								Hint:       phiDomain.FieldType(cmd.String("type")),
							},
							cmd.String("format"),
						)
					},
				},
				{
					Name:      "verify",
					Usage:     "Decrypt a sample of encrypted cells per column",
					ArgsUsage: "<table.column[:key_column]>...",
					Flags: []cli.Flag{
						&cli.IntFlag{
							Name:    "sample",
							Aliases: []string{"s"},
							Value:   100,
							Usage:   "Cells to decrypt per column (0 checks all)",
						},
						formatFlag(),
					},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						cfg := config.Load()
						container := app.NewContainer(cfg)
						defer func() { _ = container.Shutdown(ctx) }()

						useCase, err := container.ColumnMigrationUseCase()
						if err != nil {
							return err
						}

						return commands.RunVerifyColumns(
							ctx,
							useCase,
							commands.DefaultIO().Writer,
							cmd.Args().Slice(),
							int(cmd.Int("sample")),
							cmd.String("format"),
						)
					},
				},
			},
		},
	}
}
