// Package peers tracks the peer nodes this node knows about. The set
// grows dynamically as peers are observed delivering versions; liveness
// is derived from last-seen times rather than a probing protocol, since
// the transport lives outside this module.
package peers
