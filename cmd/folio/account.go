package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/folio/internal/render"
)

func (a *app) brokeragesCommand() *cli.Command {
	return &cli.Command{
		Name:  "brokerages",
		Usage: "list brokerages and set the default",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list brokerages, the default marked with *",
				Action: a.brokeragesList,
			},
			{
				Name:      "default",
				Usage:     "show the default brokerage, or set it once",
				ArgsUsage: "[ID]",
				Action:    a.brokeragesDefault,
			},
		},
	}
}

func (a *app) brokeragesList(c *cli.Context) error {
	if err := a.requireAPI(); err != nil {
		return err
	}
	brokerages, err := a.client.Brokerages(c.Context)
	if err != nil {
		return err
	}
	def, err := a.client.DefaultBrokerage(c.Context)
	if err != nil {
		return err
	}
	if a.format == render.FormatJSON {
		return render.JSON(a.out, map[string]any{"brokerages": brokerages, "default": def})
	}
	return render.Brokerages(a.out, brokerages, def)
}

func (a *app) brokeragesDefault(c *cli.Context) error {
	svc, err := a.portfolioService(c.Context)
	if err != nil {
		return err
	}

	if c.NArg() == 0 {
		profile, err := svc.Profile(c.Context, a.identity)
		if err != nil {
			return err
		}
		if profile.DefaultBrokerage == nil {
			fmt.Fprintln(a.out, "No default brokerage set.")
			return nil
		}
		fmt.Fprintf(a.out, "%s (%d)\n", profile.DefaultBrokerage.Name, profile.DefaultBrokerage.ID)
		return nil
	}

	id, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("brokerage id: %w", err)
	}
	b, err := svc.SetDefaultBrokerage(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Default brokerage set to %s.\n", b.Name)
	return nil
}

func (a *app) profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "show the signed-in user and default brokerage",
		Action: func(c *cli.Context) error {
			svc, err := a.portfolioService(c.Context)
			if err != nil {
				return err
			}
			profile, err := svc.Profile(c.Context, a.identity)
			if err != nil {
				return err
			}
			if a.format == render.FormatJSON {
				return render.JSON(a.out, profile)
			}

			fmt.Fprintf(a.out, "User: %s\n", profile.UserID)
			if profile.CanSetDefault() {
				fmt.Fprintln(a.out, "Default brokerage: not set (run `folio brokerages default ID` to choose one)")
				return nil
			}
			fmt.Fprintf(a.out, "Default brokerage: %s\n", profile.DefaultBrokerage.Name)
			return nil
		},
	}
}

func (a *app) pricesCommand() *cli.Command {
	return &cli.Command{
		Name:  "prices",
		Usage: "maintain manual market prices (requires DATABASE_URL)",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "store the price for a stock code",
				ArgsUsage: "CODE PRICE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return errors.New("expected CODE and PRICE arguments")
					}
					p, err := decimal.NewFromString(c.Args().Get(1))
					if err != nil {
						return fmt.Errorf("price %q: %w", c.Args().Get(1), err)
					}
					if err := a.openQuotes(c.Context); err != nil {
						return err
					}
					if err := a.quotes.SaveQuote(c.Context, c.Args().First(), p); err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Saved %s at %s.\n", c.Args().First(), a.money.Format(p))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list stored prices",
				Action: func(c *cli.Context) error {
					if err := a.openQuotes(c.Context); err != nil {
						return err
					}
					quotes, err := a.quoteRepo.GetAllQuotes(c.Context)
					if err != nil {
						return err
					}
					if a.format == render.FormatJSON {
						return render.JSON(a.out, quotes)
					}
					return render.Quotes(a.out, quotes, a.money)
				},
			},
		},
	}
}
