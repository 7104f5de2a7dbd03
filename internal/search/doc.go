// Package search defines the backend-neutral query and result model.
//
// A Query is turned into backend request parameters by an adapter; the
// adapter's flat hit list is turned back into a Result, which groups hits by
// the record that owns them while keeping the untouched backend response for
// totals and diagnostics.
package search
