package dto

// GeminiAPIRequest is the generateContent request body.
type GeminiAPIRequest struct {
	Contents []Content `json:"contents"`
}

// Content holds the parts of one message.
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is one text fragment of a message.
type Part struct {
	Text string `json:"text"`
}

// GeminiAPIResponse is the generateContent response body.
type GeminiAPIResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one completion candidate.
type Candidate struct {
	Content Content `json:"content"`
}
