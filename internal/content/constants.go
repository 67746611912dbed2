package content

// content processing limits
const (
	MaxTitleLength        = 200
	headingMaxLength      = 80
	DisplayTruncateLength = 50
)

// default base path under which downloaded images are served
const DefaultResourceBase = "/static/resources"
