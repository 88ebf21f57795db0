// Package download streams episode audio to local storage in bounded
// chunks, persisting throttled progress so the status surfaces stay
// live during long fetches.
package download
