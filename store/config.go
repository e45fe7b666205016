package store

// Config holds configuration for the Store.
type Config struct {
	// TableName is the single physical table holding every entity.
	// Default: "ordertable"
	TableName string

	// ReverseIndexName is the global secondary index keyed by sk (hash) and pk (range).
	// Default: "sk_pk_index"
	ReverseIndexName string

	// ConsistentRead makes Get and base-table Query strongly consistent.
	// Secondary index queries are always eventually consistent.
	ConsistentRead bool
}

// DefaultConfig returns the default table layout.
func DefaultConfig() Config {
	return Config{
		TableName:        "ordertable",
		ReverseIndexName: "sk_pk_index",
	}
}

// validate fills in defaults for empty values.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "ordertable"
	}
	if c.ReverseIndexName == "" {
		c.ReverseIndexName = "sk_pk_index"
	}
}
