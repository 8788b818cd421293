package peers

import (
	"time"

	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/wire"
)

// Record is one known peer, spec.md §3: "(endpoint, ip, last_contact,
// last_attempt, last_bootstrap_attempt, last_rep_request,
// last_rep_response, rep_weight, probable_rep_account, network_version,
// node_id)".
type Record struct {
	Endpoint wire.Endpoint
	IP       string

	LastContact          time.Time
	LastAttempt          time.Time
	LastBootstrapAttempt time.Time
	LastRepRequest        time.Time
	LastRepResponse       time.Time

	RepWeight          numeric.Uint128
	ProbableRepAccount numeric.Uint256
	NetworkVersion     uint8
	NodeID             numeric.Uint256

	Legacy bool
}

// repIndexEntry is the btree.BTreeG element backing the rep_weight
// descending secondary index spec.md §3 requires ("indexed by: ...
// rep_weight descending (top-reps query)").
type repIndexEntry struct {
	weight   numeric.Uint128
	endpoint wire.Endpoint
	record   *Record
}

// Less orders entries by weight descending so an Ascend traversal visits
// the heaviest representatives first; ties break on endpoint string so
// the ordering is total (required by btree.BTreeG).
func (e *repIndexEntry) Less(other *repIndexEntry) bool {
	if cmp := e.weight.Cmp(other.weight); cmp != 0 {
		return cmp > 0
	}
	return e.endpoint.String() < other.endpoint.String()
}
