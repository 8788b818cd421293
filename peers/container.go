package peers

import (
	"math"
	"math/rand"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/btree"
	"golang.org/x/time/rate"

	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/wire"
)

const (
	// HandshakeVersion is the minimum protocol version that must perform
	// the syn-cookie node-id handshake; anything older is treated as
	// legacy (spec.md §4.3 "contacted ... for legacy peers").
	HandshakeVersion uint8 = 0x0f

	// reachoutWindow bounds how often this node will retry an outgoing
	// connection attempt to the same endpoint.
	reachoutWindow = 60 * time.Second
)

// Config holds the container's tunables, taken from spec.md §6's
// design-level defaults.
type Config struct {
	MaxPeersPerIP    int
	MaxLegacyPeers   int
	SynCookieCutoff  time.Duration
	LiveNet          bool
}

// DefaultConfig returns the spec.md §6 design-level defaults.
func DefaultConfig() Config {
	return Config{
		MaxPeersPerIP:   10,
		MaxLegacyPeers:  500,
		SynCookieCutoff: 5 * time.Minute,
		LiveNet:         true,
	}
}

// Container is the single mutex-guarded known-peer collection of
// spec.md §4.3.
type Container struct {
	cfg Config
	own wire.Endpoint

	mu           sync.Mutex
	byEndpoint   map[wire.Endpoint]*Record
	perIPCount   map[string]int
	legacyCount  int
	repIndex     *btree.BTreeG[*repIndexEntry]
	repByAccount map[numeric.Uint256]struct{} // distinct probable_rep_account set, for TotalWeight

	cookies       map[wire.Endpoint]*cookie
	cookiesPerIP  map[string]int

	reachMu      sync.Mutex
	reachAttempt map[wire.Endpoint]time.Time
	reachLimiter map[string]*rate.Limiter

	// OnEndpoint fires for every newly inserted peer; OnDisconnect fires
	// whenever the container transitions from non-empty to empty.
	// spec.md §6 "Observer callbacks (exposed by the core)".
	OnEndpoint   func(wire.Endpoint)
	OnDisconnect func()
}

const repIndexDegree = 32

// NewContainer builds an empty peer container for this node's own
// endpoint (never admitted as a peer of itself).
func NewContainer(cfg Config, own wire.Endpoint) *Container {
	return &Container{
		cfg:          cfg,
		own:          own,
		byEndpoint:   make(map[wire.Endpoint]*Record),
		perIPCount:   make(map[string]int),
		repIndex:     btree.NewG(repIndexDegree, (*repIndexEntry).Less),
		repByAccount: make(map[numeric.Uint256]struct{}),
		cookies:      make(map[wire.Endpoint]*cookie),
		cookiesPerIP: make(map[string]int),
		reachAttempt: make(map[wire.Endpoint]time.Time),
		reachLimiter: make(map[string]*rate.Limiter),
	}
}

func ipKey(e wire.Endpoint) string {
	return net.IP(e.IP[:]).String()
}

// eligible reports whether e may ever be admitted: not reserved, not
// this node's own endpoint.
func (c *Container) eligible(e wire.Endpoint) bool {
	if e == c.own || e.IsZero() {
		return false
	}
	ip := net.IP(e.IP[:])
	if IsLoopback(ip) {
		return false
	}
	return !IsReserved(ip, c.cfg.LiveNet)
}

// Contacted implements spec.md §4.3 contacted(endpoint, version).
func (c *Container) Contacted(endpoint wire.Endpoint, version uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version < HandshakeVersion {
		c.insertLocked(endpoint, version, true)
		return false
	}
	if _, known := c.byEndpoint[endpoint]; known {
		return true
	}
	return c.perIPCount[ipKey(endpoint)] < c.cfg.MaxPeersPerIP
}

// Insert implements spec.md §4.3 insert(endpoint, version) -> rejected.
func (c *Container) Insert(endpoint wire.Endpoint, version uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(endpoint, version, version < HandshakeVersion)
}

func (c *Container) insertLocked(endpoint wire.Endpoint, version uint8, legacy bool) (rejected bool) {
	if !c.eligible(endpoint) {
		return true
	}

	if existing, ok := c.byEndpoint[endpoint]; ok {
		existing.LastContact = time.Now()
		existing.NetworkVersion = version
		return false
	}

	ip := ipKey(endpoint)

	if c.perIPCount[ip] >= c.cfg.MaxPeersPerIP {
		return true
	}
	if legacy && c.legacyCount >= c.cfg.MaxLegacyPeers {
		return true
	}

	rec := &Record{
		Endpoint:       endpoint,
		IP:             ip,
		LastContact:    time.Now(),
		NetworkVersion: version,
		Legacy:         legacy,
	}
	c.byEndpoint[endpoint] = rec
	c.perIPCount[ip]++
	if legacy {
		c.legacyCount++
	}

	if c.OnEndpoint != nil {
		c.OnEndpoint(endpoint)
	}
	return false
}

// AssignSynCookie implements spec.md §4.3 assign_syn_cookie(endpoint).
// It returns (challenge, true) on success, or (zero, false) when the
// per-IP cap is exhausted or a cookie already exists for endpoint.
func (c *Container) AssignSynCookie(endpoint wire.Endpoint) (numeric.Uint256, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cookies[endpoint]; exists {
		return numeric.Uint256{}, false
	}
	ip := ipKey(endpoint)
	if c.cookiesPerIP[ip] >= c.cfg.MaxPeersPerIP {
		return numeric.Uint256{}, false
	}

	challenge, err := randomChallenge()
	if err != nil {
		return numeric.Uint256{}, false
	}
	c.cookies[endpoint] = &cookie{challenge: challenge, createdAt: time.Now()}
	c.cookiesPerIP[ip]++
	return challenge, true
}

// ValidateSynCookie implements spec.md §4.3 validate_syn_cookie(endpoint,
// account, signature) -> invalid. On a valid signature the cookie is
// consumed and the per-IP counter decremented back to its prior value.
func (c *Container) ValidateSynCookie(endpoint wire.Endpoint, account numeric.Uint256, sig numeric.Uint512) (invalid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ck, ok := c.cookies[endpoint]
	if !ok {
		return true
	}
	if time.Since(ck.createdAt) > c.cfg.SynCookieCutoff {
		delete(c.cookies, endpoint)
		c.cookiesPerIP[ipKey(endpoint)]--
		return true
	}
	if !ck.verify(account, sig) {
		return true
	}
	delete(c.cookies, endpoint)
	c.cookiesPerIP[ipKey(endpoint)]--
	return false
}

// purgeCookiesLocked evicts cookies older than SynCookieCutoff. Called
// from PurgeList so cookie aging rides the same sweep as peer aging.
func (c *Container) purgeCookiesLocked() {
	now := time.Now()
	for ep, ck := range c.cookies {
		if now.Sub(ck.createdAt) > c.cfg.SynCookieCutoff {
			delete(c.cookies, ep)
			c.cookiesPerIP[ipKey(ep)]--
		}
	}
}

// RandomSet implements spec.md §4.3 random_set(n): up to n endpoints
// chosen uniformly at random, bounded attempts, filled by most-recent
// contact when randomness is exhausted.
func (c *Container) RandomSet(n int) []wire.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]*Record, 0, len(c.byEndpoint))
	for _, r := range c.byEndpoint {
		all = append(all, r)
	}
	if n >= len(all) {
		out := make([]wire.Endpoint, len(all))
		for i, r := range all {
			out[i] = r.Endpoint
		}
		return out
	}

	picked := make(map[wire.Endpoint]struct{}, n)
	out := make([]wire.Endpoint, 0, n)
	const maxAttempts = 4
	for attempt := 0; attempt < n*maxAttempts && len(out) < n; attempt++ {
		r := all[rand.Intn(len(all))]
		if _, ok := picked[r.Endpoint]; ok {
			continue
		}
		picked[r.Endpoint] = struct{}{}
		out = append(out, r.Endpoint)
	}

	if len(out) < n {
		sort.Slice(all, func(i, j int) bool { return all[i].LastContact.After(all[j].LastContact) })
		for _, r := range all {
			if len(out) >= n {
				break
			}
			if _, ok := picked[r.Endpoint]; ok {
				continue
			}
			picked[r.Endpoint] = struct{}{}
			out = append(out, r.Endpoint)
		}
	}
	return out
}

// ListFanout implements spec.md §4.3/GLOSSARY list_fanout(): the random
// set of size ceil(sqrt(|peers|)).
func (c *Container) ListFanout() []wire.Endpoint {
	c.mu.Lock()
	size := len(c.byEndpoint)
	c.mu.Unlock()

	fanout := int(math.Ceil(math.Sqrt(float64(size))))
	return c.RandomSet(fanout)
}

// RepCrawl implements spec.md §4.3 rep_crawl(): 10 endpoints ordered by
// stalest last_rep_request when observed total rep weight is at least
// minWeight, else 40.
func (c *Container) RepCrawl(minWeight numeric.Uint128) []wire.Endpoint {
	c.mu.Lock()
	all := make([]*Record, 0, len(c.byEndpoint))
	for _, r := range c.byEndpoint {
		all = append(all, r)
	}
	total := c.totalWeightLocked()
	c.mu.Unlock()

	n := 40
	if total.Cmp(minWeight) >= 0 {
		n = 10
	}

	sort.Slice(all, func(i, j int) bool { return all[i].LastRepRequest.Before(all[j].LastRepRequest) })
	if n > len(all) {
		n = len(all)
	}
	out := make([]wire.Endpoint, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].Endpoint
		all[i].LastRepRequest = time.Now()
	}
	return out
}

// Representatives implements spec.md §4.3 representatives(n): up to n
// peers with non-zero rep_weight, weight descending.
func (c *Container) Representatives(n int) []*Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Record, 0, n)
	c.repIndex.Ascend(func(e *repIndexEntry) bool {
		if len(out) >= n {
			return false
		}
		if !e.weight.IsZero() {
			out = append(out, e.record)
		}
		return true
	})
	return out
}

// Reachout implements spec.md §4.3 reachout(endpoint): records an
// outgoing attempt, returning true when the endpoint is invalid, already
// known, or already being attempted within the current window.
func (c *Container) Reachout(endpoint wire.Endpoint) bool {
	c.mu.Lock()
	_, known := c.byEndpoint[endpoint]
	eligible := c.eligible(endpoint)
	c.mu.Unlock()

	if !eligible || known {
		return true
	}

	c.reachMu.Lock()
	defer c.reachMu.Unlock()

	if last, ok := c.reachAttempt[endpoint]; ok && time.Since(last) < reachoutWindow {
		return true
	}

	ip := ipKey(endpoint)
	limiter, ok := c.reachLimiter[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(reachoutWindow/time.Duration(c.cfg.MaxPeersPerIP+1)), c.cfg.MaxPeersPerIP)
		c.reachLimiter[ip] = limiter
	}
	if !limiter.Allow() {
		return true
	}

	c.reachAttempt[endpoint] = time.Now()
	return false
}

// RepResponse implements spec.md §4.3 rep_response(endpoint, account,
// weight) -> updated.
func (c *Container) RepResponse(endpoint wire.Endpoint, account numeric.Uint256, weight numeric.Uint128) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.byEndpoint[endpoint]
	if !ok {
		return false
	}
	rec.LastRepResponse = time.Now()

	if !weight.GreaterThan(rec.RepWeight) {
		return false
	}

	if !rec.RepWeight.IsZero() {
		c.repIndex.Delete(&repIndexEntry{weight: rec.RepWeight, endpoint: endpoint})
	}
	rec.RepWeight = weight
	rec.ProbableRepAccount = account
	c.repIndex.ReplaceOrInsert(&repIndexEntry{weight: weight, endpoint: endpoint, record: rec})
	c.repByAccount[account] = struct{}{}
	return true
}

// PurgeList implements spec.md §4.3 purge_list(cutoff): removes peers
// whose last_contact predates cutoff, returning the removed endpoints.
// Fires OnDisconnect if the container becomes empty.
func (c *Container) PurgeList(cutoff time.Time) []wire.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeCookiesLocked()

	var removed []wire.Endpoint
	for ep, rec := range c.byEndpoint {
		if rec.LastContact.Before(cutoff) {
			removed = append(removed, ep)
			delete(c.byEndpoint, ep)
			c.perIPCount[rec.IP]--
			if rec.Legacy {
				c.legacyCount--
			}
			if !rec.RepWeight.IsZero() {
				c.repIndex.Delete(&repIndexEntry{weight: rec.RepWeight, endpoint: ep})
			}
		}
	}

	if len(removed) > 0 && len(c.byEndpoint) == 0 && c.OnDisconnect != nil {
		c.OnDisconnect()
	}
	return removed
}

// TotalWeight implements spec.md §4.3 total_weight(): sum of rep_weight,
// counting each distinct probable_rep_account once.
func (c *Container) TotalWeight() numeric.Uint128 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalWeightLocked()
}

func (c *Container) totalWeightLocked() numeric.Uint128 {
	seen := make(map[numeric.Uint256]struct{}, len(c.repByAccount))
	total := numeric.ZeroUint128
	for _, rec := range c.byEndpoint {
		if rec.RepWeight.IsZero() {
			continue
		}
		if _, dup := seen[rec.ProbableRepAccount]; dup {
			continue
		}
		seen[rec.ProbableRepAccount] = struct{}{}
		total = total.Add(rec.RepWeight)
	}
	return total
}

// Len reports the number of known peers.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byEndpoint)
}
