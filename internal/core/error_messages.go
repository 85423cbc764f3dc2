package core

// error_messages.go maps technical errors to messages with codes users can
// quote when reporting a problem.
//
// # Error Codes Reference
//
// # Column and Specification Errors (COL001-COL099, CFG001-CFG099)
//
//	COL001 - Column not found: A referenced column does not exist
//	         Action: Pick a column from the table's column list
//	         Patterns: "column not found"
//
//	CFG001 - Invalid configuration: The operation settings are not valid
//	         Action: Check the selected columns, operation and values
//	         Patterns: "invalid configuration"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the upload size limit
//	          Action: Split the file or upload a Parquet version
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Ensure every row has the same number of columns as the header
//	          Patterns: "invalid csv"
//
//	FILE003 - Invalid Parquet: File could not be read as Parquet
//	          Action: Re-export the file; only flat schemas are supported
//	          Patterns: "invalid parquet"
//
//	FILE004 - Unsupported format: File type is not supported
//	          Action: Upload a .csv, .tsv or .parquet file
//	          Patterns: "unsupported file format"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Upload a file with a header row and data
//	          Patterns: "file is empty", "no file provided"
//
//	FILE006 - Too many rows: File has more rows than allowed
//	          Action: Filter the data before uploading or split the file
//	          Patterns: "too many rows"
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Table not found: The named table is not loaded
//	         Action: Choose a table from the list or upload it again
//	         Patterns: "table not found"
//
//	TBL002 - Table exists: A table with this name is already loaded
//	         Action: Choose another name or remove the existing table
//	         Patterns: "table already exists"
//
//	TBL003 - Table limit: The workspace holds the maximum number of tables
//	         Action: Remove a table before loading another
//	         Patterns: "table limit reached"
//
//	TBL004 - Invalid name: Table names must be 1-128 printable characters
//	         Action: Choose a shorter name without control characters
//	         Patterns: "invalid table name"
//
//	SES001 - Nothing to save: There is no result to save yet
//	         Action: Run a filter, aggregation or join first
//	         Patterns: "no result to save"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent uploads"
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout: Request timed out
//	         Action: Try a smaller file or check your connection
//	         Patterns: "context deadline exceeded"
//
// # Import Errors (SRC001-SRC099, DB001-DB099)
//
//	SRC001 - Import disabled: No database is configured
//	         Action: Set DATABASE_URL to enable Postgres import
//	         Patterns: "import disabled"
//
//	SRC002 - Invalid source table: Schema or table name is missing
//	         Action: Pick a table from the database listing
//	         Patterns: "invalid source table"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
//	DB006 - Timeout: Operation timed out
//	        Action: Import a smaller table or try again later
//	        Patterns: "timeout"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid request: The request body does not match its schema
//	         Action: Check the request fields against the API documentation
//	         Patterns: "invalid request"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins. A join on a missing key fails with an invalid
// configuration error that mentions the missing column, so COL001 is listed
// before CFG001.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Column and specification errors
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "A referenced column does not exist",
			Action:  "Pick a column from the table's column list",
			Code:    "COL001",
		},
	},
	{
		pattern: "invalid configuration",
		msg: UserMessage{
			Message: "The operation settings are not valid",
			Action:  "Check the selected columns, operation and values",
			Code:    "CFG001",
		},
	},

	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the upload size limit",
			Action:  "Split the file or upload a Parquet version",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every row has the same number of columns as the header",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid parquet",
		msg: UserMessage{
			Message: "File could not be read as Parquet",
			Action:  "Re-export the file; only flat schemas are supported",
			Code:    "FILE003",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "File type is not supported",
			Action:  "Upload a .csv, .tsv or .parquet file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file is empty",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row and data",
			Code:    "FILE005",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Upload a file with a header row and data",
			Code:    "FILE005",
		},
	},
	{
		pattern: "too many rows",
		msg: UserMessage{
			Message: "File has more rows than allowed",
			Action:  "Filter the data before uploading or split the file",
			Code:    "FILE006",
		},
	},

	// Workspace errors
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Choose a table from the list or upload it again",
			Code:    "TBL001",
		},
	},
	{
		pattern: "table already exists",
		msg: UserMessage{
			Message: "A table with this name is already loaded",
			Action:  "Choose another name or remove the existing table",
			Code:    "TBL002",
		},
	},
	{
		pattern: "table limit reached",
		msg: UserMessage{
			Message: "The workspace holds the maximum number of tables",
			Action:  "Remove a table before loading another",
			Code:    "TBL003",
		},
	},
	{
		pattern: "invalid table name",
		msg: UserMessage{
			Message: "Table names must be 1-128 printable characters",
			Action:  "Choose a shorter name without control characters",
			Code:    "TBL004",
		},
	},
	{
		pattern: "no result to save",
		msg: UserMessage{
			Message: "There is no result to save yet",
			Action:  "Run a filter, aggregation or join first",
			Code:    "SES001",
		},
	},

	// Upload errors
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// Import errors
	{
		pattern: "import disabled",
		msg: UserMessage{
			Message: "Database import is not configured",
			Action:  "Set DATABASE_URL to enable Postgres import",
			Code:    "SRC001",
		},
	},
	{
		pattern: "invalid source table",
		msg: UserMessage{
			Message: "No database table was selected",
			Action:  "Pick a table from the database listing",
			Code:    "SRC002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Import a smaller table or try again later",
			Code:    "DB006",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},

	// Request errors
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request is malformed",
			Action:  "Check the request fields against the API documentation",
			Code:    "REQ001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000). Support staff
// should check the logs for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := fmt.Errorf("load sales.csv: %w", tableio.ErrInvalidCSV)
//	msg := MapError(err)
//	// msg.Code == "FILE002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern. Known errors
// carry details that are safe to show (column names, line numbers); others
// are logged and replaced by the generic message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
