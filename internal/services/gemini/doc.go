// Package gemini implements analysis.Service on the Gemini REST API.
//
// Audio is sent through the resumable Files API upload, polled until the
// service reports it ACTIVE, referenced from a generateContent call that asks
// for JSON constrained by a JSON Schema, and finally deleted. Non-2xx answers
// are returned as *services.StatusError carrying the HTTP code, the Google
// status string (for example RESOURCE_EXHAUSTED), and any retry hint, so the
// analyzer decides what is transient.
package gemini
