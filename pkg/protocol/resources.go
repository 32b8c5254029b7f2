package protocol

// MimeTypeJSON tags resource contents rendered as JSON
const MimeTypeJSON = "application/json"

// Resource represents a resource as advertised by resources/list
type Resource struct {
	URI         string `json:"uri"`
	MimeType    string `json:"mimeType"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListResourcesResult defines the response for listing resources
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ReadResourceParams defines parameters for reading a resource
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ResourceContents contains the content of a resource
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// ReadResourceResult defines the response for reading a resource
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}
