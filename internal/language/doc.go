// Package language provides language code normalization and transcript
// language detection.
//
// Code conversions (ISO 639-1, ISO 639-2, BCP 47 hints, display names) and
// detection share one table of supported languages. Detection uses a lazily
// built lingua detector restricted to that table.
package language
