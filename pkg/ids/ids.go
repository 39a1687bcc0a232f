package ids

import (
	"database/sql"
	"strings"
)

// CleanID trims surrounding whitespace from raw. The second return value is
// false when nothing is left, in which case the value must not be used.
func CleanID(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", false
	}
	return id, true
}

// CleanNull is CleanID for nullable columns. NULL is dropped like an empty value.
func CleanNull(raw sql.NullString) (string, bool) {
	if !raw.Valid {
		return "", false
	}
	return CleanID(raw.String)
}

// AppendClean appends the cleaned form of raw to list, or returns list
// unchanged when raw is blank.
func AppendClean(list []string, raw string) []string {
	if id, ok := CleanID(raw); ok {
		return append(list, id)
	}
	return list
}

// SplitDelimited splits a single column value on delimiter and cleans every
// piece. The split is literal, so delimiters such as "|" or "." need no
// escaping. An empty delimiter keeps the whole value as one id.
//
// The result is never nil and keeps split order; duplicates are kept.
func SplitDelimited(raw, delimiter string) []string {
	list := make([]string, 0)
	if raw == "" {
		return list
	}
	if delimiter == "" {
		return AppendClean(list, raw)
	}
	for _, piece := range strings.Split(raw, delimiter) {
		list = AppendClean(list, piece)
	}
	return list
}

// SplitNull is SplitDelimited for nullable columns.
func SplitNull(raw sql.NullString, delimiter string) []string {
	if !raw.Valid {
		return make([]string, 0)
	}
	return SplitDelimited(raw.String, delimiter)
}

// Contains reports whether id is present in list.
func Contains(list []string, id string) bool {
	for _, candidate := range list {
		if candidate == id {
			return true
		}
	}
	return false
}
