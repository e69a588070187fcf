package model

// File is the metadata record for one uploaded document. VectorIndex is
// derived from the slugified file name at upload time and never changes,
// even when the display name is edited later.
type File struct {
	ID            string `json:"id" db:"id"`
	FileName      string `json:"file_name" db:"file_name"`
	FileURL       string `json:"file_url" db:"file_url"`
	VectorIndex   string `json:"vector_index" db:"vector_index"`
	IsProcessed   bool   `json:"is_processed" db:"is_processed"`
	ProcessedData string `json:"processed_data,omitempty" db:"processed_data"`
	Ctime         int64  `json:"ctime" db:"ctime"`
	Mtime         int64  `json:"mtime" db:"mtime"`
}
