/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dispatchdesk/cashbook"
	"github.com/dispatchdesk/cashbook/config"
	"github.com/dispatchdesk/cashbook/database"
	"github.com/dispatchdesk/cashbook/internal/notification"
)

// Cashbook is the CLI application, wrapping the root cobra command.
type Cashbook struct {
	cmd *cobra.Command
}

// cashbookInstance holds what preRun builds for the subcommands.
type cashbookInstance struct {
	cashbook *cashbook.Cashbook
	cnf      *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration file and wires the engine to its data
// source before any subcommand runs.
func preRun(app *cashbookInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		app.cnf = cnf
		if !needsEngine(cmd) {
			return nil
		}

		cb, err := setupCashbook(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.cashbook = cb
		return nil
	}
}

// needsEngine is false for commands that only read configuration. Migrations
// run before the schema exists.
func needsEngine(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "migrate", "config":
			return false
		}
	}
	return true
}

func setupCashbook(cfg *config.Configuration) (*cashbook.Cashbook, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	cb, err := cashbook.NewCashbook(db)
	if err != nil {
		return nil, fmt.Errorf("error creating cashbook: %v", err)
	}
	return cb, nil
}

func NewCLI() *Cashbook {
	var configFile string
	c := &cashbookInstance{}

	var rootCmd = &cobra.Command{
		Use:   "cashbook",
		Short: "Cash reconciliation for dispatch clerks and branches",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./cashbook.json", "Configuration file for cashbook")
	rootCmd.PersistentPreRunE = preRun(c, &configFile)

	rootCmd.AddCommand(serverCommands(c))
	rootCmd.AddCommand(migrateCommands(c))
	rootCmd.AddCommand(reportCommands(c))
	rootCmd.AddCommand(configCommands(c))

	return &Cashbook{cmd: rootCmd}
}

func (w Cashbook) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
