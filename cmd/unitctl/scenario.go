package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/unitalloc/mem"
	"github.com/joshuapare/unitalloc/mem/alloc"
)

// Scenario drives an in-memory allocator through a list of steps.
//
// Example:
//
//	region:
//	  base: 0x40000000
//	  size: 200000
//	  capacity: 400000
//	steps:
//	  - {op: alloc, name: a, size: 100}
//	  - {op: free, name: a}
//	  - {op: alloc, size: 1000000, expect: no-memory}
type Scenario struct {
	Region ScenarioRegion `yaml:"region"`
	Steps  []Step         `yaml:"steps"`
}

// ScenarioRegion places the managed range inside a reserved Space.
// Capacity is the Space size; extend steps grow into it. Default: Size.
type ScenarioRegion struct {
	Base     uint64 `yaml:"base"`
	Size     uint64 `yaml:"size"`
	Capacity uint64 `yaml:"capacity"`
}

// Step is a single allocator operation.
type Step struct {
	// Op is alloc, free, extend or stats.
	Op string `yaml:"op"`

	// Name labels an alloc so a later free can refer to it.
	Name string `yaml:"name"`

	Size  uint64 `yaml:"size"`
	Align uint64 `yaml:"align"`

	// Expect is ok (default), no-memory, invalid or overlap.
	Expect string `yaml:"expect"`
}

// StepResult records what a step did.
type StepResult struct {
	Index int         `json:"index"`
	Op    string      `json:"op"`
	Name  string      `json:"name,omitempty"`
	Addr  string      `json:"addr,omitempty"`
	Error string      `json:"error,omitempty"`
	Stats alloc.Stats `json:"stats"`
}

var expectations = map[string]error{
	"":          nil,
	"ok":        nil,
	"no-memory": alloc.ErrNoMemory,
	"invalid":   alloc.ErrInvalidParam,
	"overlap":   alloc.ErrMemoryOverlap,
}

// loadScenario decodes a scenario and rejects unknown fields.
func loadScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if sc.Region.Size == 0 {
		return nil, fmt.Errorf("scenario region size must be positive")
	}
	if sc.Region.Base == 0 {
		sc.Region.Base = defaultBase
	}
	if sc.Region.Capacity == 0 {
		sc.Region.Capacity = sc.Region.Size
	}
	if sc.Region.Capacity < sc.Region.Size {
		return nil, fmt.Errorf("scenario capacity %d is below size %d", sc.Region.Capacity, sc.Region.Size)
	}
	for i, st := range sc.Steps {
		switch st.Op {
		case "alloc", "free", "extend", "stats":
		default:
			return nil, fmt.Errorf("step %d: unknown op %q", i, st.Op)
		}
		if _, ok := expectations[st.Expect]; !ok {
			return nil, fmt.Errorf("step %d: unknown expectation %q", i, st.Expect)
		}
	}
	return &sc, nil
}

type liveAlloc struct {
	addr        mem.Addr
	size, align uint64
}

// simulation is a running scenario.
type simulation struct {
	sc    *Scenario
	space *mem.Space
	alloc *alloc.UnitAllocator
	live  map[string]liveAlloc
}

func newSimulation(sc *Scenario, log *slog.Logger) (*simulation, error) {
	sp, err := mem.NewSpace(mem.Addr(sc.Region.Base), int(sc.Region.Capacity))
	if err != nil {
		return nil, fmt.Errorf("failed to reserve space: %w", err)
	}
	r, err := sp.Region(sp.Base(), sc.Region.Size)
	if err != nil {
		_ = sp.Close()
		return nil, err
	}
	a := alloc.New(&alloc.Options{Logger: log})
	a.Init(r)
	return &simulation{sc: sc, space: sp, alloc: a, live: make(map[string]liveAlloc)}, nil
}

func (s *simulation) close() error {
	return s.space.Close()
}

// run executes every step. It stops at the first step whose outcome does not
// match its expectation and returns the results so far.
func (s *simulation) run() ([]StepResult, error) {
	results := make([]StepResult, 0, len(s.sc.Steps))
	for i, st := range s.sc.Steps {
		res, err := s.step(st)
		res.Index, res.Op, res.Name = i, st.Op, st.Name
		if err != nil {
			res.Error = err.Error()
		}
		res.Stats = s.alloc.Stats()
		results = append(results, res)

		want := expectations[st.Expect]
		switch {
		case want == nil && err != nil:
			return results, fmt.Errorf("step %d (%s %s): %w", i, st.Op, st.Name, err)
		case want != nil && !errors.Is(err, want):
			return results, fmt.Errorf("step %d (%s %s): expected %v, got %v", i, st.Op, st.Name, want, err)
		}
	}
	return results, nil
}

func (s *simulation) step(st Step) (StepResult, error) {
	var res StepResult
	switch st.Op {
	case "alloc":
		addr, err := s.alloc.Alloc(st.Size, st.Align)
		if err != nil {
			return res, err
		}
		res.Addr = addr.String()
		if st.Name != "" {
			s.live[st.Name] = liveAlloc{addr: addr, size: st.Size, align: st.Align}
		}
	case "free":
		la, ok := s.live[st.Name]
		if !ok {
			return res, fmt.Errorf("no live allocation named %q", st.Name)
		}
		size := la.size
		if st.Size != 0 {
			size = st.Size
		}
		res.Addr = la.addr.String()
		if err := s.alloc.TryDealloc(la.addr, size, la.align); err != nil {
			return res, err
		}
		delete(s.live, st.Name)
	case "extend":
		end := s.space.Base() + mem.Addr(s.alloc.TotalBytes())
		r, err := s.space.Region(end, st.Size)
		if err != nil {
			return res, fmt.Errorf("%w: %w", alloc.ErrInvalidParam, err)
		}
		if err := s.alloc.Extend(r); err != nil {
			return res, err
		}
	case "stats":
	}
	return res, nil
}
