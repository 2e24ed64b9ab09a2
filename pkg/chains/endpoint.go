package chains

import "strings"

// Dialect is the pagination style an LCD endpoint speaks
type Dialect int

const (
	// DialectCursor echoes pagination.next_key back as pagination.key
	DialectCursor Dialect = iota
	// DialectOffset sends a caller-computed pagination.offset
	DialectOffset
)

func (d Dialect) String() string {
	switch d {
	case DialectCursor:
		return "cursor"
	case DialectOffset:
		return "offset"
	default:
		return "unknown"
	}
}

// Endpoint is one chain's LCD base URL plus its pagination dialect
type Endpoint struct {
	Network string
	ChainID string  `validate:"required"`
	LCD     string  `validate:"required,http_url"`
	Dialect Dialect `validate:"oneof=0 1"`
}

// BaseURL returns the LCD URL without a trailing slash
func (e Endpoint) BaseURL() string {
	return strings.TrimRight(e.LCD, "/")
}
