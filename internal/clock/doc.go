// Package clock provides the vector clock used to track causality between
// writes originating on different peer nodes. Comparing two clocks is the
// single source of truth for whether two updates are ordered or concurrent.
package clock
