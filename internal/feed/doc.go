// Package feed resolves podcast RSS and Atom feeds into episode candidates.
package feed
