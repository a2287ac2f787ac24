package meiliclient

// Key is a Meilisearch API key as returned by the /keys endpoints.
type Key struct {
	UID         string   `json:"uid"`
	Key         string   `json:"key"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Actions     []string `json:"actions"`
	Indexes     []string `json:"indexes"`
	ExpiresAt   *string  `json:"expiresAt"`
}

// KeyParams is the payload for creating a key. ExpiresAt is always
// serialized because Meilisearch requires the field, null meaning
// "never expires".
type KeyParams struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Actions     []string `json:"actions"`
	Indexes     []string `json:"indexes"`
	ExpiresAt   *string  `json:"expiresAt"`
}

// Index is a Meilisearch index as returned by the /indexes endpoints.
type Index struct {
	UID        string  `json:"uid"`
	PrimaryKey *string `json:"primaryKey"`
}

type keysPage struct {
	Results []Key `json:"results"`
	Offset  int   `json:"offset"`
	Limit   int   `json:"limit"`
	Total   int   `json:"total"`
}

type createIndexRequest struct {
	UID        string  `json:"uid"`
	PrimaryKey *string `json:"primaryKey,omitempty"`
}
