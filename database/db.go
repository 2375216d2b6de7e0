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

package database

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/dispatchdesk/cashbook/config"
	_ "github.com/lib/pq"
)

var instance *Datasource
var once sync.Once

// Datasource is the postgres implementation of IDataSource. Zone is the
// reporting zone used to turn day ranges into timestamp bounds.
type Datasource struct {
	Conn *sql.DB
	Zone *time.Location
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Zone: configuration.Reconciliation.Location()}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ConnectDB opens a pooled connection and verifies it with a ping.
func ConnectDB(ds config.DataSourceConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", ds.Dns)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(ds.MaxOpenConns)
	db.SetMaxIdleConns(ds.MaxIdleConns)
	db.SetConnMaxLifetime(ds.ConnMaxLifetime)
	db.SetConnMaxIdleTime(ds.ConnMaxIdleTime)

	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		_ = db.Close()
		return nil, err
	}

	log.Println("Database connection established ✅")
	return db, nil
}

func (d Datasource) zone() *time.Location {
	if d.Zone == nil {
		return time.UTC
	}
	return d.Zone
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
