package property

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	go_ora "github.com/sijms/go-ora/v2"
)

// OracleConfig locates a property table in an Oracle database.
type OracleConfig struct {
	// DSN, when set, is used as is and the connection fields are ignored.
	DSN            string
	Host           string
	Port           string
	Service        string
	Username       string
	Password       string
	WalletLocation string
	Table          string
}

// ConnString returns the go-ora connection URL for the config.
func (c OracleConfig) ConnString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return "", fmt.Errorf("property: invalid oracle port %q: %w", c.Port, err)
	}
	options := map[string]string{"SSL": "true"}
	if c.WalletLocation != "" {
		options["WALLET"] = c.WalletLocation
	}
	return go_ora.BuildUrl(c.Host, port, c.Service, c.Username, c.Password, options), nil
}

// DefaultOracleTable is read when OracleConfig.Table is empty.
const DefaultOracleTable = "PROPERTIES"

var tableName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*(\.[A-Za-z][A-Za-z0-9_$#]*)?$`)

func propertyQuery(table string) (string, error) {
	if table == "" {
		table = DefaultOracleTable
	}
	if !tableName.MatchString(table) {
		return "", fmt.Errorf("property: invalid table name %q", table)
	}
	return "SELECT PROPERTY_CODE, PROPERTY_NAME, ADDRESS_STREET, ADDRESS_CITY, " +
		"ADDRESS_STATE, ADDRESS_ZIP, PROPERTY_WEBSITE FROM " + table, nil
}

// LoadOracle reads the property directory from an Oracle table with the
// columns PROPERTY_CODE, PROPERTY_NAME, ADDRESS_STREET, ADDRESS_CITY,
// ADDRESS_STATE, ADDRESS_ZIP and PROPERTY_WEBSITE.
func LoadOracle(ctx context.Context, cfg OracleConfig) (*Directory, error) {
	query, err := propertyQuery(cfg.Table)
	if err != nil {
		return nil, err
	}
	connStr, err := cfg.ConnString()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return nil, fmt.Errorf("property: failed to open oracle connection: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("property: failed to ping oracle: %w", err)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("property: failed to query %s: %w", cfg.Table, err)
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		var code, name, street, city, state, zip, website sql.NullString
		if err := rows.Scan(&code, &name, &street, &city, &state, &zip, &website); err != nil {
			return nil, fmt.Errorf("property: failed to scan row: %w", err)
		}
		properties = append(properties, Property{
			Code:    code.String,
			Name:    name.String,
			Street:  street.String,
			City:    city.String,
			State:   state.String,
			Zip:     zip.String,
			Website: website.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("property: failed to read rows: %w", err)
	}
	return NewDirectory(properties)
}
