package graph

import (
	"encoding/json"
	"slices"
)

// DefaultWeight is the weight name used when callers do not pick one.
const DefaultWeight = "weight"

// JobSet is the set of roles a person had on a work.
type JobSet map[string]struct{}

// NewJobSet returns a set holding jobs.
func NewJobSet(jobs ...string) JobSet {
	s := make(JobSet, len(jobs))
	for _, j := range jobs {
		s.Add(j)
	}
	return s
}

func (s JobSet) Add(job string) {
	s[job] = struct{}{}
}

func (s JobSet) Has(job string) bool {
	_, ok := s[job]
	return ok
}

// Intersects reports whether s and jobs share at least one role.
func (s JobSet) Intersects(jobs JobSet) bool {
	for j := range jobs {
		if s.Has(j) {
			return true
		}
	}
	return false
}

// Sorted returns the roles in lexical order.
func (s JobSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for j := range s {
		out = append(out, j)
	}
	slices.Sort(out)
	return out
}

func (s JobSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *JobSet) UnmarshalJSON(data []byte) error {
	var jobs []string
	if err := json.Unmarshal(data, &jobs); err != nil {
		return err
	}
	*s = NewJobSet(jobs...)
	return nil
}

// Contribution is one credit line of a person on a work, keyed by category
// (actor, actress, director, ...) on the edge.
type Contribution struct {
	Ordering int    `json:"ordering"`
	Job      string `json:"job,omitempty"`
}

// Edge connects a person to a work. Jobs only grows; weights are named so
// several weightings can live on the same graph.
type Edge struct {
	Person        Node                    `json:"-"`
	Work          Node                    `json:"-"`
	Jobs          JobSet                  `json:"jobs"`
	Contributions map[string]Contribution `json:"contributions,omitempty"`
	Weights       map[string]float64      `json:"weights,omitempty"`
	CrawlDepth    int                     `json:"crawl_depth,omitempty"`
}

// Other returns the endpoint of e that is not n.
func (e *Edge) Other(n Node) Node {
	if n == e.Person {
		return e.Work
	}
	return e.Person
}

// Weight returns the named weight and whether it is set.
func (e *Edge) Weight(name string) (float64, bool) {
	w, ok := e.Weights[name]
	return w, ok
}

// SetWeight stores the named weight.
func (e *Edge) SetWeight(name string, w float64) {
	if e.Weights == nil {
		e.Weights = make(map[string]float64)
	}
	e.Weights[name] = w
}

// AddContribution records a credit line under category.
func (e *Edge) AddContribution(category string, c Contribution) {
	if e.Contributions == nil {
		e.Contributions = make(map[string]Contribution)
	}
	e.Contributions[category] = c
}

// ContributedAs reports whether the edge has a credit in category.
func (e *Edge) ContributedAs(category string) bool {
	_, ok := e.Contributions[category]
	return ok
}

// Order returns the smallest credit ordering on the edge and whether any
// credit line is present.
func (e *Edge) Order() (int, bool) {
	order, found := 0, false
	for _, c := range e.Contributions {
		if !found || c.Ordering < order {
			order, found = c.Ordering, true
		}
	}
	return order, found
}
