package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/escolaris/notas/core"
	"github.com/escolaris/notas/core/academic"
	"github.com/escolaris/notas/storage/database"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf         *core.Config
	db           *sqlx.DB
	academicRepo academic.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                    - create the database and app user if missing")
	fmt.Println("  migrate COMMAND [ARGS]      - run a goose migration command (up, down, status, ...)")
	fmt.Println("  checkweights -year YEAR_ID  - verify an academic year's term weights sum to 100")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	checkWeightsCmd := flag.NewFlagSet("checkweights", flag.ExitOnError)
	checkWeightsYear := checkWeightsCmd.String("year", "", "The academic year ID to check.")

	switch args[1] {
	case "createdb":
		return database.CreateIfNotExist(cli.conf)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "checkweights":
		if err := checkWeightsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *checkWeightsYear == "" {
			checkWeightsCmd.Usage()
			return errHelp
		}
		return cli.checkWeights(*checkWeightsYear)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) checkWeights(yearID string) error {
	svc := academic.NewService(cli.academicRepo)
	check, err := svc.CheckTermWeights(context.Background(), yearID)
	if err != nil {
		return err
	}
	if !check.Valid {
		return fmt.Errorf("term weights sum to %g, expected 100", check.Total)
	}
	fmt.Println("term weights OK")
	return nil
}
