package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Storage   string `json:"storage"`
}

// ReadingsResponse is the body of the reading listing endpoint.
// The field is omitted when nothing matches.
type ReadingsResponse struct {
	WeatherMetrics []Reading `json:"weatherMetrics,omitempty"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Path  string `json:"path,omitempty"`
}
