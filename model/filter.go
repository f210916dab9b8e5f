package model

// Filter is a stored descriptor, never compiled by the capture engine. The
// HTTP adapter's filter registry hands these back verbatim; only a
// client's explicit Config.Filter string ever reaches the capture handle.
type Filter struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Expression  string   `json:"expression,omitempty"`
	Protocol    string   `json:"protocol,omitempty"`
	Source      string   `json:"source,omitempty"`
	Destination string   `json:"destination,omitempty"`
	MinPort     *uint16  `json:"min_port,omitempty"`
	MaxPort     *uint16  `json:"max_port,omitempty"`
	MinSize     *int     `json:"min_size,omitempty"`
	MaxSize     *int     `json:"max_size,omitempty"`
	Active      bool     `json:"active"`
}
