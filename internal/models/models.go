// Package models holds the persisted entities of the invoicing domain.
package models

import "github.com/google/uuid"

// All lists the models managed by AutoMigrate, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Company{},
		&Invoice{},
		&LineItem{},
		&UserProfile{},
		&BankingDetail{},
	}
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
