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

/*
Package main provides the CLI commands for managing database migrations.
This includes commands for applying and rolling back migrations.
*/

package main

import (
	"fmt"
	"log"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/dispatchdesk/cashbook"
	"github.com/dispatchdesk/cashbook/database"
)

const migrationSchema = "cashbook"

func migrateCommands(c *cashbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run cashbook schema migrations",
	}

	cmd.AddCommand(migrateUpCommands(c))
	cmd.AddCommand(migrateDownCommands(c))

	return cmd
}

func migrationSource() migrate.EmbedFileSystemMigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: cashbook.SQLFiles,
		Root:       "sql",
	}
}

func runMigrations(c *cashbookInstance, direction migrate.MigrationDirection) (int, error) {
	db, err := database.ConnectDB(c.cnf.DataSource)
	if err != nil {
		return 0, fmt.Errorf("error connecting to database: %v", err)
	}
	defer db.Close()

	// The migration table lives next to the tables it tracks.
	migrate.SetSchema(migrationSchema)
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + migrationSchema); err != nil {
		return 0, fmt.Errorf("error creating schema: %v", err)
	}
	return migrate.Exec(db, "postgres", migrationSource(), direction)
}

func migrateUpCommands(c *cashbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use: "up",
		Run: func(cmd *cobra.Command, args []string) {
			n, err := runMigrations(c, migrate.Up)
			if err != nil {
				log.Printf("Error migrating up: %v", err)
				return
			}
			fmt.Printf("Applied %d migrations!\n", n)
		},
	}

	return cmd
}

func migrateDownCommands(c *cashbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use: "down",
		Run: func(cmd *cobra.Command, args []string) {
			n, err := runMigrations(c, migrate.Down)
			if err != nil {
				log.Printf("Error migrating down: %v", err)
				return
			}
			fmt.Printf("Rolled back %d migrations!\n", n)
		},
	}

	return cmd
}
