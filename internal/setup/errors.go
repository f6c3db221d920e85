package setup

import "errors"

// ErrMigrationsPending is returned when the schema is behind the binary.
var ErrMigrationsPending = errors.New("database migrations are pending")
