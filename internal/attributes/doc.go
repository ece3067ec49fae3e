// Package attributes turns a document identifier (and optional body text)
// into the structured Record the matcher compares.
//
// Extraction never fails: an identifier without a date, amounts or names
// simply yields empty fields. Records are values and are safe to share
// between goroutines once built.
package attributes
