package appsession

import (
	"io/fs"

	appmigrations "github.com/goliatone/go-appsession/migrations"
)

// GetMigrationsFS returns the full embedded migration tree.
func GetMigrationsFS() fs.FS {
	return appmigrations.GetMigrationsFS()
}

// GetCoreMigrationsFS returns the default grant schema migration tree.
func GetCoreMigrationsFS() fs.FS {
	return appmigrations.GetCoreMigrationsFS()
}
