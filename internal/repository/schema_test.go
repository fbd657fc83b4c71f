package repository

import (
	"os"
	"regexp"
	"strings"
	"testing"
)

// The repositories and migrations/001_init.sql must agree on column
// names; a column referenced in SQL but absent from the DDL only
// surfaces at runtime against a live database.

func loadDDL(t *testing.T) string {
	t.Helper()
	ddl, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("failed to read migration: %v", err)
	}
	return string(ddl)
}

func ddlColumns(t *testing.T, ddl, table string) map[string]bool {
	t.Helper()
	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\n\);`)
	m := re.FindStringSubmatch(ddl)
	if m == nil {
		t.Fatalf("table %s not found in DDL", table)
	}

	columns := make(map[string]bool)
	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if len(fields) == 0 || strings.ToUpper(fields[0]) == "PRIMARY" {
			continue
		}
		columns[fields[0]] = true
	}
	return columns
}

func splitColumnList(list string) []string {
	var columns []string
	for _, col := range strings.Split(list, ",") {
		if col = strings.TrimSpace(col); col != "" {
			columns = append(columns, col)
		}
	}
	return columns
}

func assertColumns(t *testing.T, ddl, table string, wanted []string) {
	t.Helper()
	have := ddlColumns(t, ddl, table)
	for _, col := range wanted {
		if !have[col] {
			t.Errorf("table %s: column %q referenced in queries but missing from DDL", table, col)
		}
	}
}

func TestSchemaMatchesQueries(t *testing.T) {
	ddl := loadDDL(t)

	assertColumns(t, ddl, "users", splitColumnList(userColumns))
	assertColumns(t, ddl, "refresh_tokens", splitColumnList(refreshTokenColumns))
	assertColumns(t, ddl, "email_tokens", splitColumnList(emailTokenColumns))

	// role seeding and assignment
	assertColumns(t, ddl, "roles", []string{"id", "name", "description"})
	assertColumns(t, ddl, "user_roles", []string{"user_id", "role_id"})
}
