package catalog

import "database/sql"

// DB exposes the connection to tests that need to tamper with raw rows.
func (s *Store) DB() *sql.DB { return s.db }
