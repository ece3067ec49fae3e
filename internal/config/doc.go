// Package config loads, normalizes, and validates docmatch configuration data.
//
// It supplies repository defaults (including the invoice and disbursement
// pipelines), expands user paths, reads TOML files, and honours environment
// overrides such as DOCMATCH_BASE_DIR. Pipeline directories are resolved
// against paths.base_dir and scoring weights are filled from the preset for
// the pipeline's date policy.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical enum values, and clear validation errors.
package config
