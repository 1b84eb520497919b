package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate applies a SELECT ... FOR UPDATE row lock on dialects that
// support it. SQLite serializes writers at the connection level, so the
// clause is skipped there.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
