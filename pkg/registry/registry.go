// Package registry stores mock definitions and resolves requests to the
// winning definition by pattern match, condition filtering, scenario tag,
// and priority.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/mocktape/mocktape/internal/id"
	"github.com/mocktape/mocktape/internal/matching"
	"github.com/mocktape/mocktape/pkg/mock"
)

// DefaultScenario is the sentinel scenario active when none is explicitly chosen.
const DefaultScenario = "default"

// Options configures a registration.
type Options struct {
	// Scenario tags the definition; it only resolves while that scenario is active.
	Scenario string

	// Owner identifies the registrar for scoped removal ("scenario:x", "flow:y").
	Owner string

	// Priority orders same-route definitions; higher wins.
	Priority int

	// Conditions must all accept the request.
	Conditions []mock.Condition
}

// Candidate is a definition that matched a request, with captured path params.
type Candidate struct {
	Definition *mock.Definition
	Params     map[string]string
}

// Registry is a thread-safe store of mock definitions. Literal patterns go
// into exact-match buckets; everything else into a pattern list.
type Registry struct {
	mu       sync.RWMutex
	exact    map[string][]*mock.Definition
	patterns []*mock.Definition
	byID     map[string]*mock.Definition
	seq      int64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		exact: make(map[string][]*mock.Definition),
		byID:  make(map[string]*mock.Definition),
	}
}

func bucketKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Register adds a definition and returns its ID. Multiple definitions per
// method+pattern are allowed; no uniqueness constraint applies.
func (r *Registry) Register(method, pattern string, producer mock.Producer, opts *Options) string {
	if opts == nil {
		opts = &Options{}
	}

	def := &mock.Definition{
		ID:         id.Short(),
		Method:     strings.ToUpper(method),
		Pattern:    pattern,
		Producer:   producer,
		Scenario:   opts.Scenario,
		Owner:      opts.Owner,
		Priority:   opts.Priority,
		Conditions: opts.Conditions,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	def.Seq = r.seq
	r.byID[def.ID] = def

	if matching.IsLiteral(pattern) {
		key := bucketKey(def.Method, pattern)
		r.exact[key] = append(r.exact[key], def)
	} else {
		r.patterns = append(r.patterns, def)
	}
	return def.ID
}

// MatchCandidates returns every definition matching the request's method and
// path whose conditions all pass, in registration order. Scenario filtering
// happens later, in Resolve.
func (r *Registry) MatchCandidates(req *mock.Request) []Candidate {
	path := req.Path()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Candidate

	// Exact bucket: both the method-specific and the any-method bucket.
	for _, key := range []string{bucketKey(req.Method, path), bucketKey("*", path)} {
		for _, def := range r.exact[key] {
			if def.ConditionsPass(req) {
				out = append(out, Candidate{Definition: def})
			}
		}
	}

	// Pattern list.
	for _, def := range r.patterns {
		if !def.MatchesMethod(req.Method) {
			continue
		}
		ok, params := matching.Match(def.Pattern, path)
		if !ok {
			continue
		}
		if !def.ConditionsPass(req) {
			continue
		}
		out = append(out, Candidate{Definition: def, Params: params})
	}

	// Registration order keeps downstream tie-breaking deterministic.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Definition.Seq < out[j].Definition.Seq
	})
	return out
}

// Resolve picks the winning candidate for a request under the active scenario:
// scenario-tagged candidates must match activeScenario (untagged ones always
// qualify), then the maximum priority wins, ties breaking by registration order.
// Returns nil when nothing matches.
func (r *Registry) Resolve(req *mock.Request, activeScenario string) *Candidate {
	if activeScenario == "" {
		activeScenario = DefaultScenario
	}

	candidates := r.MatchCandidates(req)

	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Definition.Scenario != "" && c.Definition.Scenario != activeScenario {
			continue
		}
		if best == nil || c.Definition.Priority > best.Definition.Priority {
			best = c
		}
	}
	return best
}

// Remove deletes a definition by ID. Returns true if it existed.
func (r *Registry) Remove(defID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.byID[defID]
	if !ok {
		return false
	}
	delete(r.byID, defID)
	r.removeFromBuckets(def)
	return true
}

// RemoveScenario deletes every definition tagged with the given scenario.
// Globally registered (untagged) definitions are untouched.
func (r *Registry) RemoveScenario(name string) int {
	return r.removeWhere(func(d *mock.Definition) bool { return d.Scenario == name })
}

// RemoveOwner deletes every definition registered by the given owner.
func (r *Registry) RemoveOwner(owner string) int {
	return r.removeWhere(func(d *mock.Definition) bool { return d.Owner == owner })
}

func (r *Registry) removeWhere(pred func(*mock.Definition) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for defID, def := range r.byID {
		if pred(def) {
			delete(r.byID, defID)
			r.removeFromBuckets(def)
			removed++
		}
	}
	return removed
}

// removeFromBuckets must be called with the lock held.
func (r *Registry) removeFromBuckets(def *mock.Definition) {
	if matching.IsLiteral(def.Pattern) {
		key := bucketKey(def.Method, def.Pattern)
		bucket := r.exact[key]
		for i, d := range bucket {
			if d.ID == def.ID {
				r.exact[key] = append(bucket[:i:i], bucket[i+1:]...)
				break
			}
		}
		if len(r.exact[key]) == 0 {
			delete(r.exact, key)
		}
		return
	}
	for i, d := range r.patterns {
		if d.ID == def.ID {
			r.patterns = append(r.patterns[:i:i], r.patterns[i+1:]...)
			break
		}
	}
}

// Reset removes every definition. The sequence counter is preserved so
// definitions registered after a reset still order after earlier ones.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact = make(map[string][]*mock.Definition)
	r.patterns = nil
	r.byID = make(map[string]*mock.Definition)
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// List returns all definitions in registration order.
func (r *Registry) List() []*mock.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*mock.Definition, 0, len(r.byID))
	for _, def := range r.byID {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
