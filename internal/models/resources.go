package models

// Resource represents a raw Graph API record (policy, definition value,
// assignment, setting definition) before it is decoded into a typed model.
type Resource map[string]interface{}
