package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/openspace-ehr/phiguard/cmd/app/commands"
	"github.com/openspace-ehr/phiguard/internal/app"
	"github.com/openspace-ehr/phiguard/internal/config"
)

func getAccessCommands() []*cli.Command {
	setProtection := func(enabled bool) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load()
			container := app.NewContainer(cfg)
			defer func() { _ = container.Shutdown(ctx) }()

			protection, err := container.ProtectionUseCase()
			if err != nil {
				return err
			}

			return commands.RunSetProtection(
				ctx,
				protection,
				container.Logger(),
				commands.DefaultIO().Writer,
				enabled,
			)
		}
	}

	return []*cli.Command{
		{
			Name:  "patient-protection",
			Usage: "Inspect or change the patient DOB re-verification toggle",
			Commands: []*cli.Command{
				{
					Name:  "status",
					Usage: "Show whether patient protection is enforced",
					Flags: []cli.Flag{formatFlag()},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						cfg := config.Load()
						container := app.NewContainer(cfg)
						defer func() { _ = container.Shutdown(ctx) }()

						protection, err := container.ProtectionUseCase()
						if err != nil {
							return err
						}

						return commands.RunProtectionStatus(
							ctx,
							protection,
							commands.DefaultIO().Writer,
							cmd.String("format"),
						)
					},
				},
				{
					Name:   "enable",
					Usage:  "Require DOB re-verification before patient records are shown",
					Action: setProtection(true),
				},
				{
					Name:   "disable",
					Usage:  "Stop requiring DOB re-verification",
					Action: setProtection(false),
				},
			},
		},
	}
}
