// Package pipeline runs one video URL through extraction and analysis and
// reduces every failure to one of three kinds.
//
// Pipeline.Process bounds the whole run with a timeout, scopes the audio file
// to the analysis call, and translates stage errors once: media failures
// become ErrVideoProcessing, service connection failures keep their
// *analysis.ConnectionError (matching ErrConnection), and everything else
// becomes ErrUnexpected. KindOf classifies an error for presentation.
package pipeline
