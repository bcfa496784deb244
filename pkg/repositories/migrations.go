package repositories

import (
	"fmt"
	"os"
	"path/filepath"
)

type migration struct {
	path string
	sql  string
}

// readMigrations returns the files of a migrations directory in name order.
func readMigrations(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}

		migrationPath := filepath.Join(dir, entry.Name())
		b, err := os.ReadFile(migrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", migrationPath, err)
		}
		migrations = append(migrations, migration{path: migrationPath, sql: string(b)})
	}

	return migrations, nil
}
