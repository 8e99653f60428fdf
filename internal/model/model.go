package model

// Account is the single credential pair for a deployment. Registration
// refuses to create a second one.
type Account struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password"`
}

// Letter is an immutable message stored in the shared document.
// ID is derived from the creation timestamp (epoch millis).
type Letter struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// Document is the full content of db.json, the single source of truth
// for non-binary state. A missing document reads as the zero value with
// Letters normalized to an empty slice.
type Document struct {
	Account *Account `json:"account"`
	Letters []Letter `json:"letters"`
}

// Item is one visible entry in a memories listing. Files carry a proxy
// URL; directories carry none.
type Item struct {
	Name        string `json:"name"`
	IsDirectory bool   `json:"isDirectory"`
	URL         string `json:"url,omitempty"`
	Path        string `json:"path"`
}

// Upload is one file in an upload batch.
type Upload struct {
	Name    string
	Content []byte
}

// Stats summarizes the vault for the home screen.
type Stats struct {
	Photos  int `json:"photos"`
	Videos  int `json:"videos"`
	Letters int `json:"letters"`
}
