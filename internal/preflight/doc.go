// Package preflight provides readiness checks for the external programs,
// filesystem paths, and credentials vidinsight depends on.
//
// The CLI "vidinsight check" command runs RunAll and renders each Result.
// The extractor performs its own binary checks before every download, so
// these checks are advisory.
package preflight
