package bigquery

type CategoryRow struct {
	CategoryID string `bigquery:"category_id"` // REQUIRED
	Name       string `bigquery:"name"`        // REQUIRED, unique case-insensitively per kind
	Kind       string `bigquery:"kind"`        // REQUIRED
}
