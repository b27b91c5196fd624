// Package aimerge implements the AI-assisted resolution strategy: it
// renders the conflicting versions of a key into a prompt, asks an
// external completion backend for a coherent merge under bounded retries
// and a per-attempt timeout, and degrades to keeping the local value when
// the backend is missing or keeps failing. Resolution always terminates
// and always produces a usable value.
package aimerge
