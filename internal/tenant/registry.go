package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Organization is a tenant, e.g. a ministry, with its departments (clients).
type Organization struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Departments []Department `json:"departments"`
}

type OrganizationsFile struct {
	Organizations []Organization `json:"organizations"`
}

// Registry is the known organizations. An empty registry means no isolation
// is configured and any tenant or client id is accepted.
type Registry struct {
	mu   sync.RWMutex
	orgs map[string]*Organization
}

func NewRegistry() *Registry {
	return &Registry{
		orgs: make(map[string]*Organization),
	}
}

func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read organizations config: %w", err)
	}

	var file OrganizationsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse organizations config: %w", err)
	}

	registry := NewRegistry()
	for i := range file.Organizations {
		if file.Organizations[i].ID == "" {
			return nil, fmt.Errorf("organization %d has no id", i)
		}
		registry.Register(&file.Organizations[i])
	}
	return registry, nil
}

func (r *Registry) Register(org *Organization) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs[org.ID] = org
}

func (r *Registry) Get(tenantID string) *Organization {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.orgs[tenantID]
}

func (r *Registry) Exists(tenantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.orgs[tenantID]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orgs)
}

// Validate checks an optional tenant/client pair against the registry.
func (r *Registry) Validate(tenantID, clientID *string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.orgs) == 0 {
		return nil
	}
	if tenantID == nil {
		if clientID != nil {
			return fmt.Errorf("client_id %q requires a tenant_id", *clientID)
		}
		return nil
	}
	org, ok := r.orgs[*tenantID]
	if !ok {
		return fmt.Errorf("unknown tenant_id %q", *tenantID)
	}
	if clientID == nil {
		return nil
	}
	for _, d := range org.Departments {
		if d.ID == *clientID {
			return nil
		}
	}
	return fmt.Errorf("unknown client_id %q for tenant %q", *clientID, *tenantID)
}

func (r *Registry) All() []*Organization {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Organization, 0, len(r.orgs))
	for _, org := range r.orgs {
		result = append(result, org)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
