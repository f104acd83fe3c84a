package domain

// Reserved document names for scoped overrides. They live next to talk
// documents but are never enumerated as talks.
const (
	ArtistDoc = "_artist"
	AlbumDoc  = "_album"
	SeasonDoc = "_season"
)

// Artist describes the publisher of a collection.
type Artist struct {
	Name      string `json:"name,omitempty"`
	Logo      string `json:"logo,omitempty"`
	Website   string `json:"website,omitempty"`
	Copyright string `json:"copyright,omitempty"`
}

// Album describes the series a collection belongs to.
type Album struct {
	Label string `json:"label,omitempty"`
}

// Season describes one period folder (one conference).
type Season struct {
	Season      int            `json:"season,omitempty"`
	Label       string         `json:"label,omitempty"`
	StartDate   string         `json:"startDate,omitempty"`
	EndDate     string         `json:"endDate,omitempty"`
	Sessions    map[int]string `json:"sessions,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	Description string         `json:"description,omitempty"`
}

// SessionLabel returns the configured label of a session or a generic
// "Session N" when the season does not name it.
func (s Season) SessionLabel(session int) string {
	if label, ok := s.Sessions[session]; ok && label != "" {
		return label
	}
	return "Session " + itoa(session)
}

// Metadata is the effective descriptive metadata of a talk after scope
// inheritance has been applied.
type Metadata struct {
	Artist Artist `json:"artist"`
	Album  Album  `json:"album"`
	Season Season `json:"season"`
}

// Episode is a talk read back out of the store for synthesis.
type Episode struct {
	Talk
	// Key is the store key, e.g. "general-conference/2022-april/gc-2022-04-...".
	Key string `json:"-"`
	// Source is the collection kind (first key segment).
	Source string `json:"source"`
	// Folder is the period folder the talk lives in.
	Folder   string   `json:"-"`
	Metadata Metadata `json:"metadata"`
}
