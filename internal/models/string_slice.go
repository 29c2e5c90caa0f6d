package models

// StringSlice is a JSON-serialized string list column.
type StringSlice []string
