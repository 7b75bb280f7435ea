/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides log.FieldLogger implementations for tests:
// Recorder keeps logged entries in memory, NewLogger writes JSON lines to a writer.
package logtest
