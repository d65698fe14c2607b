package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/folio/internal/filter"
	"github.com/mtlprog/folio/internal/reconcile"
	"github.com/mtlprog/folio/internal/render"
	"github.com/mtlprog/folio/internal/resolver"
)

// assignment is one ID=VALUE command argument.
type assignment struct {
	id    int
	value string
}

func parseAssignments(args []string) ([]assignment, error) {
	if len(args) == 0 {
		return nil, errors.New("expected at least one ID=VALUE argument")
	}
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		idText, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("argument %q: expected ID=VALUE", arg)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idText))
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		out = append(out, assignment{id: id, value: value})
	}
	return out, nil
}

func parseIDArgs(args []string) ([]int, error) {
	ids, err := filter.ParseIDs(strings.Join(args, ","))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.New("expected at least one ID argument")
	}
	return lo.Uniq(ids), nil
}

// stageAll enters edit mode on w and stages every assignment through stage.
func stageAll(w interface{ Enter() error }, as []assignment, stage func(assignment) error) error {
	if err := w.Enter(); err != nil {
		return err
	}
	for _, a := range as {
		if err := stage(a); err != nil {
			return err
		}
	}
	return nil
}

// deleteIDs selects ids on w and deletes them after confirmation.
func (a *app) deleteIDs(c *cli.Context, w deleteWorkflow, args []string) error {
	ids, err := parseIDArgs(args)
	if err != nil {
		return err
	}
	if err := w.Enter(); err != nil {
		return err
	}
	for _, id := range ids {
		if err := w.Toggle(id); err != nil {
			return err
		}
	}
	return w.DeleteSelected(c.Context, a.confirm)
}

type deleteWorkflow interface {
	Enter() error
	Toggle(id int) error
	DeleteSelected(ctx context.Context, confirm reconcile.Confirmer) error
}

func (a *app) sectorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sectors",
		Usage: "manage sectors",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list sectors by name",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Usage: "name substring"},
				},
				Action: func(c *cli.Context) error {
					catalog, err := a.catalog(c.Context)
					if err != nil {
						return err
					}
					sectors := render.SortSectors(filter.SearchSectors(catalog.Sectors(), c.String("search")))
					if a.format == render.FormatJSON {
						return render.JSON(a.out, sectors)
					}
					return render.Sectors(a.out, sectors)
				},
			},
			{
				Name:      "add",
				Usage:     "add a sector",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					catalog, err := a.catalog(c.Context)
					if err != nil {
						return err
					}
					editor := reconcile.NewSectorEditor(a.client, catalog, a.notifier())
					_, err = editor.Add(c.Context, strings.Join(c.Args().Slice(), " "))
					if errors.Is(err, resolver.ErrCancelled) {
						return nil
					}
					return err
				},
			},
			{
				Name:      "rename",
				Usage:     "rename sectors in one batch",
				ArgsUsage: "ID=NAME...",
				Action: func(c *cli.Context) error {
					as, err := parseAssignments(c.Args().Slice())
					if err != nil {
						return err
					}
					catalog, err := a.catalog(c.Context)
					if err != nil {
						return err
					}
					editor := reconcile.NewSectorEditor(a.client, catalog, a.notifier())
					if err := stageAll(editor, as, func(as assignment) error { return editor.Stage(as.id, as.value) }); err != nil {
						return err
					}
					return editor.SaveAll(c.Context)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete sectors",
				ArgsUsage: "ID...",
				Action: func(c *cli.Context) error {
					catalog, err := a.catalog(c.Context)
					if err != nil {
						return err
					}
					editor := reconcile.NewSectorEditor(a.client, catalog, a.notifier())
					return a.deleteIDs(c, editor, c.Args().Slice())
				},
			},
		},
	}
}

func (a *app) mastersCommand() *cli.Command {
	return &cli.Command{
		Name:  "masters",
		Usage: "manage canonical stock masters",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list stock masters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sort", Usage: "code or sector", Value: string(render.MasterByCode)},
					&cli.StringFlag{Name: "sector", Usage: "comma-separated sector ids"},
					&cli.StringFlag{Name: "code", Usage: "code substring"},
				},
				Action: a.mastersList,
			},
			{
				Name:      "add",
				Usage:     "add a stock master",
				ArgsUsage: "CODE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "sector", Usage: "sector id", Required: true},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("expected exactly one CODE argument")
					}
					catalog, err := a.catalog(c.Context)
					if err != nil {
						return err
					}
					editor := reconcile.NewMasterEditor(a.client, catalog, a.notifier())
					_, err = editor.Add(c.Context, c.Args().First(), c.Int("sector"))
					if errors.Is(err, resolver.ErrCancelled) {
						return nil
					}
					return err
				},
			},
			{
				Name:      "set-sector",
				Usage:     "reassign stock masters to sectors in one batch",
				ArgsUsage: "ID=SECTOR_ID...",
				Action: func(c *cli.Context) error {
					as, err := parseAssignments(c.Args().Slice())
					if err != nil {
						return err
					}
					catalog, err := a.catalog(c.Context)
					if err != nil {
						return err
					}
					editor := reconcile.NewMasterEditor(a.client, catalog, a.notifier())
					err = stageAll(editor, as, func(as assignment) error {
						sectorID, err := strconv.Atoi(strings.TrimSpace(as.value))
						if err != nil {
							return fmt.Errorf("sector id for stock master %d: %w", as.id, err)
						}
						return editor.Stage(as.id, sectorID)
					})
					if err != nil {
						return err
					}
					return editor.SaveAll(c.Context)
				},
			},
			{
				Name:      "new-sector",
				Usage:     "create a sector and assign it to a stock master",
				ArgsUsage: "MASTER_ID NAME",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return errors.New("expected MASTER_ID and NAME arguments")
					}
					masterID, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("master id: %w", err)
					}
					catalog, err := a.catalog(c.Context)
					if err != nil {
						return err
					}
					editor := reconcile.NewMasterEditor(a.client, catalog, a.notifier())
					if err := editor.Enter(); err != nil {
						return err
					}
					_, err = editor.AssignNewSector(c.Context, masterID, strings.Join(c.Args().Tail(), " "))
					if errors.Is(err, resolver.ErrCancelled) {
						return nil
					}
					if err != nil {
						return err
					}
					return editor.SaveAll(c.Context)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete stock masters",
				ArgsUsage: "ID...",
				Action: func(c *cli.Context) error {
					catalog, err := a.catalog(c.Context)
					if err != nil {
						return err
					}
					editor := reconcile.NewMasterEditor(a.client, catalog, a.notifier())
					return a.deleteIDs(c, editor, c.Args().Slice())
				},
			},
		},
	}
}

func (a *app) mastersList(c *cli.Context) error {
	by, err := render.ParseMasterSort(c.String("sort"))
	if err != nil {
		return err
	}
	sectorIDs, err := filter.ParseIDs(c.String("sector"))
	if err != nil {
		return fmt.Errorf("--sector: %w", err)
	}
	catalog, err := a.catalog(c.Context)
	if err != nil {
		return err
	}

	f := filter.Filters{SectorIDs: sectorIDs, Code: c.String("code")}
	masters := render.SortMasters(filter.Apply(catalog.Masters(), f, filter.MasterKeys), by)
	if a.format == render.FormatJSON {
		return render.JSON(a.out, masters)
	}
	return render.Masters(a.out, masters)
}

func (a *app) mappingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "mappings",
		Usage: "map brokerage stock codes to stock masters",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list brokerage mappings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sort", Usage: "brokerageCode, masterCode or brokerage", Value: string(render.MappingByBrokerageCode)},
					&cli.StringFlag{Name: "brokerage", Usage: "comma-separated brokerage ids"},
					&cli.StringFlag{Name: "sector", Usage: "comma-separated sector ids"},
					&cli.StringFlag{Name: "code", Usage: "master code substring"},
				},
				Action: a.mappingsList,
			},
			{
				Name:      "assign",
				Usage:     "point mappings at existing stock masters in one batch",
				ArgsUsage: "ID=CODE...",
				Action: func(c *cli.Context) error {
					as, err := parseAssignments(c.Args().Slice())
					if err != nil {
						return err
					}
					editor, err := a.mappingEditor(c)
					if err != nil {
						return err
					}
					if err := stageAll(editor, as, func(as assignment) error { return editor.Stage(as.id, as.value) }); err != nil {
						return err
					}
					return editor.SaveAll(c.Context)
				},
			},
			{
				Name:      "new-master",
				Usage:     "create a stock master and point a mapping at it",
				ArgsUsage: "MAPPING_ID CODE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return errors.New("expected MAPPING_ID and CODE arguments")
					}
					mappingID, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("mapping id: %w", err)
					}
					editor, err := a.mappingEditor(c)
					if err != nil {
						return err
					}
					if err := editor.Enter(); err != nil {
						return err
					}
					_, err = editor.AssignNewMaster(c.Context, mappingID, c.Args().Get(1))
					if errors.Is(err, resolver.ErrCancelled) {
						return nil
					}
					if err != nil {
						return err
					}
					return editor.SaveAll(c.Context)
				},
			},
		},
	}
}

func (a *app) mappingEditor(c *cli.Context) (*reconcile.MappingEditor, error) {
	catalog, err := a.catalog(c.Context)
	if err != nil {
		return nil, err
	}
	mappings, err := a.client.Mappings(c.Context)
	if err != nil {
		return nil, err
	}
	return reconcile.NewMappingEditor(a.client, catalog, mappings, a.notifier()), nil
}

func (a *app) mappingsList(c *cli.Context) error {
	by, err := render.ParseMappingSort(c.String("sort"))
	if err != nil {
		return err
	}
	var f filter.Filters
	if f.BrokerageIDs, err = filter.ParseIDs(c.String("brokerage")); err != nil {
		return fmt.Errorf("--brokerage: %w", err)
	}
	if f.SectorIDs, err = filter.ParseIDs(c.String("sector")); err != nil {
		return fmt.Errorf("--sector: %w", err)
	}
	f.Code = c.String("code")

	if err := a.requireAPI(); err != nil {
		return err
	}
	mappings, err := a.client.Mappings(c.Context)
	if err != nil {
		return err
	}
	mappings = render.SortMappings(filter.Apply(mappings, f, filter.MappingKeys), by)
	if a.format == render.FormatJSON {
		return render.JSON(a.out, mappings)
	}
	return render.Mappings(a.out, mappings)
}
