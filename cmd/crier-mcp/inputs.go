package main

// Input types for MCP tools. The SDK infers JSON Schema from these structs.
// Pointer types are optional; value types are required.

type getArticlesInput struct {
	Date        string  `json:"date"                   jsonschema:"Publish date as YYYY-MM-DD, or today"`
	IncludeBody *bool   `json:"include_body,omitempty" jsonschema:"Include full article text (default false)"`
	UserID      *string `json:"user_id,omitempty"      jsonschema:"Annotate articles with this user's labels. If omitted uses the default user when one is configured."`
}

type getArticleInput struct {
	ContentKey *string `json:"content_key,omitempty" jsonschema:"The article's content key"`
	Title      *string `json:"title,omitempty"       jsonschema:"The article title, matched case-insensitively. Used when content_key is omitted."`
}

type recordPreferenceInput struct {
	Title  string  `json:"title"             jsonschema:"The article title"`
	Date   string  `json:"date"              jsonschema:"The article's publish date as YYYY-MM-DD"`
	Label  string  `json:"label"             jsonschema:"One of like, dislike or uncertain"`
	UserID *string `json:"user_id,omitempty" jsonschema:"User to record the label for. If omitted uses the default user."`
}

type getLabeledInput struct {
	Label  string  `json:"label"             jsonschema:"One of like, dislike or uncertain"`
	UserID *string `json:"user_id,omitempty" jsonschema:"User whose labels to list. If omitted uses the default user."`
}

type navigateInput struct {
	Date string `json:"date" jsonschema:"Starting date as YYYY-MM-DD, or today"`
	Diff string `json:"diff" jsonschema:"One of prev, next or rand"`
}

type emptyInput struct{}
