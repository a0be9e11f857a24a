package specification

import "gorm.io/gorm"

// Specification is a composable query fragment. Repositories accept any
// number of them and apply each in order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// ApplyAll chains specifications onto a query.
func ApplyAll(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}
