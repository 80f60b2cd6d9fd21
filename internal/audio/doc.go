// Package audio decodes synthesized speech into PCM and plays it through
// the system output using oto/v3.
package audio
