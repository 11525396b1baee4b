package shelf

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// NamespaceStats contains statistics about a namespace.
type NamespaceStats struct {
	// Name of the namespace
	Namespace string `json:"namespace"`

	// Table backing the namespace
	Table string `json:"table"`

	// Number of live keys
	KeyCount int `json:"key_count"`
}
