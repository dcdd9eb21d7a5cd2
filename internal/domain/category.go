package domain

// Category is owned by the category CRUD collaborator. The ledger only checks
// that referenced ids exist and upserts a few system categories by name.
type Category struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Kind TransactionKind `json:"kind"`
}
