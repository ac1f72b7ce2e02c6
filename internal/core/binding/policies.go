package binding

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/descriptor"
)

// Kind names a stock policy in configuration
type Kind string

const (
	KindRoundRobin  Kind = "round_robin"
	KindHashed      Kind = "hashed"
	KindPartitioned Kind = "partitioned"
)

// Kinds lists every stock policy
func Kinds() []Kind {
	return []Kind{KindRoundRobin, KindHashed, KindPartitioned}
}

// ParseKind creates a Kind with validation
func ParseKind(value string) (Kind, error) {
	normalized := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	for _, k := range Kinds() {
		if k == normalized {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

// RoundRobin cycles through its pool, one placeholder per bind
type RoundRobin struct {
	mu   sync.Mutex
	pool Pool
	next int
}

// NewRoundRobin creates a round-robin policy over pool
func NewRoundRobin(pool Pool) (*RoundRobin, error) {
	if pool.Len() == 0 {
		return nil, ErrEmptyPool
	}
	return &RoundRobin{pool: pool}, nil
}

// Bind returns the next placeholder in the cycle
func (p *RoundRobin) Bind(component.Name) (component.Name, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	physical := p.pool.At(p.next)
	p.next = (p.next + 1) % p.pool.Len()
	return physical, nil
}

// Hashed picks a placeholder from the logical name alone, so a component
// lands on the same placeholder across process restarts
type Hashed struct {
	pool Pool
}

// NewHashed creates a hashing policy over pool
func NewHashed(pool Pool) (*Hashed, error) {
	if pool.Len() == 0 {
		return nil, ErrEmptyPool
	}
	return &Hashed{pool: pool}, nil
}

// Bind returns the placeholder selected by the FNV-1a hash of logical
func (p *Hashed) Bind(logical component.Name) (component.Name, error) {
	h := fnv.New32a()
	h.Write([]byte(logical.String()))
	return p.pool.At(int(h.Sum32() % uint32(p.pool.Len()))), nil
}

// Partitioned keeps a round-robin pool per activity category, e.g. one set
// of placeholders per launch mode. Categories without a pool use the
// fallback pool when one is configured.
type Partitioned struct {
	partitions map[string]*RoundRobin
	fallback   *RoundRobin
}

// NewPartitioned creates a partitioned policy. fallback may be the zero Pool.
func NewPartitioned(pools map[string]Pool, fallback Pool) (*Partitioned, error) {
	if len(pools) == 0 && fallback.Len() == 0 {
		return nil, ErrEmptyPool
	}

	p := &Partitioned{partitions: make(map[string]*RoundRobin, len(pools))}
	for category, pool := range pools {
		rr, err := NewRoundRobin(pool)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}
		p.partitions[category] = rr
	}
	if fallback.Len() > 0 {
		p.fallback, _ = NewRoundRobin(fallback)
	}
	return p, nil
}

// Bind binds without a descriptor, which means the default category
func (p *Partitioned) Bind(logical component.Name) (component.Name, error) {
	return p.bindCategory(logical, descriptor.DefaultCategory)
}

// BindActivity binds from the activity's category
func (p *Partitioned) BindActivity(logical component.Name, activity descriptor.Activity) (component.Name, error) {
	return p.bindCategory(logical, activity.EffectiveCategory())
}

func (p *Partitioned) bindCategory(logical component.Name, category string) (component.Name, error) {
	if rr, ok := p.partitions[category]; ok {
		return rr.Bind(logical)
	}
	if p.fallback != nil {
		return p.fallback.Bind(logical)
	}
	return component.Name{}, fmt.Errorf("%w %q", ErrUnknownCategory, category)
}
