package dictionary

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/matmap/internal/logger"
	"github.com/ppiankov/matmap/internal/pipeline"
)

// Domain names a dictionary
type Domain string

const (
	Material Domain = "material"
	EOS      Domain = "eos"
	Thermal  Domain = "thermal"
)

// Fetcher reads a dictionary document in a single attempt
type Fetcher interface {
	FetchOnce(ctx context.Context, location string) (*pipeline.FetchResult, error)
}

// Sources are the dictionary document locations. An empty location leaves
// that domain empty.
type Sources struct {
	Material string
	EOS      string
	Thermal  string
}

// Store holds the three domain dictionaries. It is loaded once; lookups are
// safe for concurrent use after Ready is closed.
type Store struct {
	fetcher Fetcher
	log     *logger.Logger

	material *Dictionary
	eos      *Dictionary
	thermal  *Dictionary

	once  sync.Once
	ready chan struct{}
}

// NewStore creates an empty store that loads through fetcher
func NewStore(fetcher Fetcher, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		fetcher: fetcher,
		log:     log,
		ready:   make(chan struct{}),
	}
}

// NewStatic returns a ready store built from in-memory maps
func NewStatic(material, eos, thermal map[string]string) *Store {
	s := NewStore(nil, nil)
	s.once.Do(func() {
		s.material = New(material)
		s.eos = New(eos)
		s.thermal = New(thermal)
		close(s.ready)
	})
	return s
}

// Load fetches the three dictionaries concurrently, one attempt each. A
// domain whose fetch or parse fails is left empty and logged; Load itself
// never fails. Only the first call does any work.
func (s *Store) Load(ctx context.Context, src Sources) {
	s.once.Do(func() {
		defer close(s.ready)

		var g errgroup.Group
		g.Go(func() error {
			s.material = s.loadDomain(ctx, Material, src.Material)
			return nil
		})
		g.Go(func() error {
			s.eos = s.loadDomain(ctx, EOS, src.EOS)
			return nil
		})
		g.Go(func() error {
			s.thermal = s.loadDomain(ctx, Thermal, src.Thermal)
			return nil
		})
		_ = g.Wait()

		s.log.Info("dictionaries loaded",
			"material", s.material.Len(),
			"eos", s.eos.Len(),
			"thermal", s.thermal.Len())
	})
}

func (s *Store) loadDomain(ctx context.Context, domain Domain, location string) *Dictionary {
	empty := build(nil)
	if location == "" {
		s.log.Debug("no dictionary configured", "domain", string(domain))
		return empty
	}
	if s.fetcher == nil {
		s.log.Warn("dictionary unavailable", "domain", string(domain), "location", location, "err", "no fetcher")
		return empty
	}

	result, err := s.fetcher.FetchOnce(ctx, location)
	if err != nil {
		s.log.Warn("dictionary unavailable", "domain", string(domain), "location", location, "err", err)
		return empty
	}

	dict, skipped, err := Parse(result.Body)
	if err != nil {
		s.log.Warn("dictionary unreadable", "domain", string(domain), "location", location, "err", err)
		return empty
	}

	for _, key := range skipped {
		s.log.Warn("dictionary entry skipped", "domain", string(domain), "key", key, "err", "value is not a string")
	}
	for _, c := range dict.Collisions() {
		s.log.Warn("dictionary value collision",
			"domain", string(domain), "value", c.Value, "dropped", c.Dropped, "kept", c.Kept)
	}

	return dict
}

// Ready is closed once Load has finished
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Dictionary returns the dictionary for a domain (nil before Ready)
func (s *Store) Dictionary(domain Domain) *Dictionary {
	switch domain {
	case Material:
		return s.material
	case EOS:
		return s.eos
	case Thermal:
		return s.thermal
	default:
		return nil
	}
}

// ResolveMaterialID returns the material code for title, or model.Unresolved
func (s *Store) ResolveMaterialID(title string) string {
	return s.material.Resolve(title)
}

// ResolveEOSID returns the EOS code for title, or model.Unresolved
func (s *Store) ResolveEOSID(title string) string {
	return s.eos.Resolve(title)
}

// ResolveThermalID returns the thermal code for title, or model.Unresolved
func (s *Store) ResolveThermalID(title string) string {
	return s.thermal.Resolve(title)
}
