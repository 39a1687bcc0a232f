// Package ids cleans and splits the identifier values read from the web
// application's tables.
//
// Every identifier that reaches a result list goes through CleanID: surrounding
// whitespace is trimmed and blank values are dropped. Secondary group columns
// that pack several ids into one string are expanded with SplitDelimited.
//
//	groups := ids.SplitDelimited("4, ,7,,9", ",") // ["4", "7", "9"]
package ids
