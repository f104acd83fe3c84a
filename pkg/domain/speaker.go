package domain

// Speaker is a canonical person. Only ID and Name are written by ingestion;
// the remaining fields are curated by hand or by enrichment scripts.
type Speaker struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Aliases []string          `json:"aliases,omitempty"`
	Titles  map[string]string `json:"titles,omitempty"`
	Photo   string            `json:"photo,omitempty"`
	Bio     string            `json:"bio,omitempty"`
	Website string            `json:"website,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
}
