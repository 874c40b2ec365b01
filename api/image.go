package api

// Image is a saved picture of the day. Name is the user-chosen name and is
// empty when none was set; DisplayName falls back to the title.
type Image struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	DisplayName  string `json:"display_name"`
	Title        string `json:"title"`
	CatalogDate  string `json:"catalog_date"`
	DownloadedAt string `json:"downloaded_at"`
	FileRef      string `json:"file_ref"`
}

// FetchedImage is the payload of a "done" stream event: the saved image plus
// catalog details that are not stored
type FetchedImage struct {
	Image
	Copyright   string `json:"copyright,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

type FetchRequest struct {
	Date string `json:"date" binding:"required"`
}

type RenameRequest struct {
	Name string `json:"name"`
}

type Date struct {
	Date string `json:"date"`
}

type DateExists struct {
	Date   string `json:"date"`
	Exists bool   `json:"exists"`
}

// FetchProgress is the payload of a "progress" stream event
type FetchProgress struct {
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
}

// FetchFailure is the payload of a "failed" stream event
type FetchFailure struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Phase     string `json:"phase"`
	Retryable bool   `json:"retryable"`
}

type Error struct {
	Error string `json:"error"`
}
