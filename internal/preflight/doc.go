// Package preflight provides readiness checks for the filesystem paths a
// pipeline reads from and writes to.
//
// The runner calls Run before any non dry run and aborts when a check fails,
// so a missing share or a full disk is reported before the first merged file
// is written. The CLI "docmatch config validate" command uses the same checks
// to display path health.
package preflight
