package entity

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&User{},
		&Author{},
		&Category{},
		&Book{},
		&BookCategory{},
		&Loan{},
	}
}
