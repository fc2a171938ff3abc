// ABOUTME: Package doc for the settings record model
// ABOUTME: Defines modes, categories, and effective-value computation

// Package settings defines the per-application privacy record: one mode per
// sensitive data category plus optional custom substitute values. Effective
// accessors resolve a stored record into the value a caller should see,
// generating synthetic values for RANDOM modes on every read.
package settings
