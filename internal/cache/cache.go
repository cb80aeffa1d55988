// Package cache is the client's in-memory result cache. Entries have no
// TTL: once fetched they are served until ClearAll or ClearNamespace.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"agrisahayak.in/agri-sahayak/internal/market"
	"agrisahayak.in/agri-sahayak/internal/weather"
)

type Namespace string

const (
	NamespaceReference Namespace = "reference"
	NamespaceDistricts Namespace = "districts"
	NamespaceMarket    Namespace = "market"
	NamespaceWeather   Namespace = "weather"
	NamespaceLocation  Namespace = "location"
	NamespaceChat      Namespace = "chat"
)

// Keys of the singleton slots in NamespaceReference.
const (
	KeyCommodities = "commodities"
	KeyStates      = "states"

	keyLocation = "current"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID       string
	Role     Role
	Content  string
	ImageURL string
}

func NewMessage(role Role, content, imageURL string) Message {
	return Message{ID: uuid.NewString(), Role: role, Content: content, ImageURL: imageURL}
}

// Selection is the last-used market filter.
type Selection struct {
	CommodityID int
	StateID     int
	DistrictID  int
	From        string
	To          string
}

type Stats struct {
	Hits     int64
	Misses   int64
	Entries  map[Namespace]int
	Messages int
}

type Store struct {
	mu        sync.RWMutex
	entries   map[Namespace]map[any]any
	selection Selection
	messages  []Message

	hits   atomic.Int64
	misses atomic.Int64
	group  singleflight.Group
}

func New() *Store {
	return &Store{entries: make(map[Namespace]map[any]any)}
}

func (s *Store) Has(ns Namespace, key any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[ns][key]
	return ok
}

func (s *Store) Get(ns Namespace, key any) (any, bool) {
	s.mu.RLock()
	v, ok := s.entries[ns][key]
	s.mu.RUnlock()
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return v, ok
}

// Put stores v under key, replacing any previous value.
func (s *Store) Put(ns Namespace, key, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.entries[ns]
	if !ok {
		m = make(map[any]any)
		s.entries[ns] = m
	}
	m[key] = v
}

// GetOrFetch returns the cached value or calls fetch and caches its result.
// Concurrent misses on the same key share one fetch. Errors are not cached.
func (s *Store) GetOrFetch(ctx context.Context, ns Namespace, key any, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := s.Get(ns, key); ok {
		return v, nil
	}

	flightKey := fmt.Sprintf("%s/%T/%v", ns, key, key)
	v, err, _ := s.group.Do(flightKey, func() (any, error) {
		s.mu.RLock()
		v, ok := s.entries[ns][key]
		s.mu.RUnlock()
		if ok {
			return v, nil
		}

		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.Put(ns, key, v)
		return v, nil
	})
	return v, err
}

// Fetch is a typed GetOrFetch.
func Fetch[T any](ctx context.Context, s *Store, ns Namespace, key any, fetch func(context.Context) (T, error)) (T, error) {
	v, err := s.GetOrFetch(ctx, ns, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: %s entry %v has type %T", ns, key, v)
	}
	return t, nil
}

func get[T any](s *Store, ns Namespace, key any) (T, bool) {
	v, ok := s.Get(ns, key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func (s *Store) Commodities() ([]market.Commodity, bool) {
	return get[[]market.Commodity](s, NamespaceReference, KeyCommodities)
}

func (s *Store) SetCommodities(c []market.Commodity) {
	s.Put(NamespaceReference, KeyCommodities, c)
}

func (s *Store) States() ([]market.State, bool) {
	return get[[]market.State](s, NamespaceReference, KeyStates)
}

func (s *Store) SetStates(states []market.State) {
	s.Put(NamespaceReference, KeyStates, states)
}

func (s *Store) Districts(stateID int) ([]market.District, bool) {
	return get[[]market.District](s, NamespaceDistricts, stateID)
}

func (s *Store) SetDistricts(stateID int, d []market.District) {
	s.Put(NamespaceDistricts, stateID, d)
}

func (s *Store) MarketData(k MarketKey) (market.Data, bool) {
	return get[market.Data](s, NamespaceMarket, k)
}

func (s *Store) SetMarketData(k MarketKey, d market.Data) {
	s.Put(NamespaceMarket, k, d)
}

func (s *Store) Weather(k WeatherKey) (*weather.Forecast, bool) {
	return get[*weather.Forecast](s, NamespaceWeather, k)
}

func (s *Store) SetWeather(k WeatherKey, f *weather.Forecast) {
	s.Put(NamespaceWeather, k, f)
}

func (s *Store) Location() (weather.Location, bool) {
	return get[weather.Location](s, NamespaceLocation, keyLocation)
}

func (s *Store) SetLocation(l weather.Location) {
	s.Put(NamespaceLocation, keyLocation, l)
}

func (s *Store) SetCommodity(id int) {
	s.mu.Lock()
	s.selection.CommodityID = id
	s.mu.Unlock()
}

func (s *Store) SetState(id int) {
	s.mu.Lock()
	s.selection.StateID = id
	s.mu.Unlock()
}

func (s *Store) SetDistrict(id int) {
	s.mu.Lock()
	s.selection.DistrictID = id
	s.mu.Unlock()
}

// SetDateRange stores the range as YYYY-MM-DD dates.
func (s *Store) SetDateRange(from, to string) {
	s.mu.Lock()
	s.selection.From, s.selection.To = from, to
	s.mu.Unlock()
}

func (s *Store) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

func (s *Store) AppendMessage(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

// Messages returns a copy of the transcript in append order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) HasMessages() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages) > 0
}

func (s *Store) ClearMessages() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// ClearAll drops every entry, the selection and the transcript.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.entries = make(map[Namespace]map[any]any)
	s.selection = Selection{}
	s.messages = nil
	s.mu.Unlock()
}

// ClearNamespace drops one namespace. NamespaceChat clears the transcript.
func (s *Store) ClearNamespace(ns Namespace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns == NamespaceChat {
		s.messages = nil
		return
	}
	delete(s.entries, ns)
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Entries:  make(map[Namespace]int, len(s.entries)),
		Messages: len(s.messages),
	}
	for ns, m := range s.entries {
		st.Entries[ns] = len(m)
	}
	return st
}
