package model

import "time"

// Image is the metadata row describing a stored photo blob. An image is
// owned by the access record referencing it and is only created or deleted
// through that record's lifecycle.
type Image struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Access is one door-access event, granted or denied, with an optional
// photo referenced through ImageID.
type Access struct {
	ID        string    `json:"id"`
	Access    bool      `json:"access"`
	Date      time.Time `json:"date"`
	ImageID   *string   `json:"image_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessWithImage is the join view: an access record with its image
// embedded, or nil when the record has no photo.
type AccessWithImage struct {
	Access
	Image *Image `json:"image"`
}

// PageInfo carries pagination metadata for the history listing.
// NextNum and PrevNum are nil when there is no such page.
type PageInfo struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
	NextNum *int `json:"next_num"`
	PrevNum *int `json:"prev_num"`
}
