// Package anchor maps text selected in a rendered document back to byte
// offsets in its markup source.
//
// The stripped projection removes inline markup while remembering where
// every kept byte came from. Locate searches the raw text first and the
// projection second, then uses the surrounding block text and the reader's
// occurrence index to choose between duplicate matches. Nothing in this
// package takes configuration or keeps state between calls.
package anchor
