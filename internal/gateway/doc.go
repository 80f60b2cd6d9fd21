// Package gateway talks to the speech-synthesis gateway: it builds speech
// requests from form input, performs the synthesis call, and folds every
// failure, whatever its encoding, into a single Failure value.
//
// The admin endpoints (provider listing, statistics) share the same client,
// transport and session credential.
package gateway
