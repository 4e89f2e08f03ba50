package dto

// Res is the envelope of every JSON response.
type Res struct {
	Success bool `json:"success"`
	Error   any  `json:"error"`
	Data    any  `json:"data"`
}

type ErrorType struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PostSelection

type PostSelectionReq struct {
	Symbol string `json:"symbol" binding:"required"`
}

type PostSelectionRes struct {
	Selected string `json:"selected"`
}

// GetStatus

type GetStatusRes struct {
	Source    string `json:"source"`
	Connected bool   `json:"connected"`
	Received  uint64 `json:"received"`
	Dropped   uint64 `json:"dropped"`
	Clients   int    `json:"clients"`
}
