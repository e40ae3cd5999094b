// Package directory owns the live sessions and screens.
//
// Manager assigns persistent identifiers, drives session lifecycle requests,
// caps the number of background sessions with an LRU, and routes screen
// property changes to the sessions bound to each screen.
//
// The directory lock is never held while listeners run. Work that a callback
// wants to do against the directory, such as destroying an evicted session, is
// posted to the looper and applied after the current call returns.
package directory
