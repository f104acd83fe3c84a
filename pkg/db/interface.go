package db

import "database/sql"

// DBProvider is implemented by clients that hand out a sql.DB handle, so
// PostgresClient and SupabaseClient can back the same SQLStore.
type DBProvider interface {
	DB() *sql.DB
}
