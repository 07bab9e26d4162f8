package chi

import (
	"errors"
	"strings"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// Category groups user-visible errors by remediation.
type Category string

// Error categories.
const (
	CategoryColumnNotFound Category = "column_not_found"
	CategoryConnection     Category = "connection_error"
	CategorySQL            Category = "sql_error"
	CategoryAIModel        Category = "ai_model_error"
	CategoryDataset        Category = "dataset_error"
	CategoryPermission     Category = "permission_error"
	CategoryFile           Category = "file_error"
	CategoryUnknown        Category = "unknown_error"
)

// Remedy is the catalogued copy shown for a category.
type Remedy struct {
	Title       string
	Message     string
	Suggestions []string
}

var catalog = map[Category]Remedy{
	CategoryColumnNotFound: {
		Title:   "Column not found",
		Message: "The dataset has no column with that name. The header may contain special characters or the file layout changed.",
		Suggestions: []string{
			"Check the column names of the dataset",
			"Avoid special characters and spaces in column names",
			"Upload the file again",
			"Ask an administrator to check the dataset status",
		},
	},
	CategoryConnection: {
		Title:   "Connection error",
		Message: "A backing service did not respond in time. Check the network connection and try again.",
		Suggestions: []string{
			"Check that the network connection works",
			"Try again later",
			"Contact support if the problem persists",
		},
	},
	CategorySQL: {
		Title:   "Query error",
		Message: "The data query failed. Check the question or contact an administrator.",
		Suggestions: []string{
			"Check the conditions in the question",
			"Make sure the dataset finished parsing",
			"Try a simpler question",
			"Ask an administrator to check the query engine",
		},
	},
	CategoryAIModel: {
		Title:   "AI service error",
		Message: "The AI service is temporarily unavailable. Try again later.",
		Suggestions: []string{
			"The AI service may be down, try again later",
			"Check the model configuration",
			"Ask an administrator to check the AI service",
		},
	},
	CategoryDataset: {
		Title:   "Dataset error",
		Message: "The dataset could not be processed. Check its status or upload it again.",
		Suggestions: []string{
			"Check that the dataset finished uploading and parsing",
			"Make sure the file format is correct",
			"Upload the file again",
			"Check the dataset stage statuses",
		},
	},
	CategoryPermission: {
		Title:   "Permission denied",
		Message: "You are not allowed to perform this operation. Contact an administrator.",
		Suggestions: []string{
			"You may not have access to this dataset",
			"Ask an administrator for access",
			"Check the account status",
		},
	},
	CategoryFile: {
		Title:   "File error",
		Message: "The file could not be processed. Check its format and size.",
		Suggestions: []string{
			"Check that the file type is supported",
			"Make sure the file size is within the limit",
			"Upload the file again",
			"Ask an administrator about file requirements",
		},
	},
	CategoryUnknown: {
		Title:   "Unknown error",
		Message: "An unexpected error occurred.",
		Suggestions: []string{
			"Try again later",
			"Contact support if the problem persists",
			"Include the request id when reporting the error",
		},
	},
}

// Lookup returns the catalogued copy for c, falling back to the unknown category.
func Lookup(c Category) Remedy {
	if r, ok := catalog[c]; ok {
		return r
	}
	return catalog[CategoryUnknown]
}

// Classify maps an error to a category. Typed sentinels decide first;
// untyped errors are classified by their message.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.Is(err, domain.ErrParse), errors.Is(err, domain.ErrColumnCoercion):
		return CategoryFile
	case errors.Is(err, domain.ErrTransient):
		return CategoryConnection
	case errors.Is(err, domain.ErrEmbeddingProviderError),
		errors.Is(err, domain.ErrCompletionProviderError),
		errors.Is(err, domain.ErrDimensionConflict):
		return CategoryAIModel
	case errors.Is(err, domain.ErrExecution), errors.Is(err, domain.ErrDraftRejected):
		if isMissingColumn(err.Error()) {
			return CategoryColumnNotFound
		}
		return CategorySQL
	case errors.Is(err, domain.ErrStageBusy),
		errors.Is(err, domain.ErrStagePrecondition),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrNotFound):
		return CategoryDataset
	}
	return classifyMessage(err.Error())
}

func isMissingColumn(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "no such column") ||
		(strings.Contains(lower, "column") && strings.Contains(lower, "not found"))
}

func classifyMessage(msg string) Category {
	lower := strings.ToLower(msg)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case isMissingColumn(msg):
		return CategoryColumnNotFound
	case has("connection", "timeout", "network"):
		return CategoryConnection
	case has("sql", "query"):
		return CategorySQL
	case has("model", "embedding", "completion"):
		return CategoryAIModel
	case has("dataset"):
		return CategoryDataset
	case has("permission", "access denied", "forbidden"):
		return CategoryPermission
	case has("file") && has("size", "format", "extension", "type", "empty", "bytes"):
		return CategoryFile
	default:
		return CategoryUnknown
	}
}
