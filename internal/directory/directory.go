package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// Directory is the in-memory department registry: which agents belong to a
// department and how its queue is configured. Seeded from a JSON file at
// startup and mutated through the admin API afterwards.
type Directory struct {
	mu              sync.RWMutex
	departments     map[string]*department
	defaultCapacity int
	logger          zerolog.Logger
}

type department struct {
	config types.QueueConfig
	agents map[string]types.Agent
}

// seedFile is the on-disk seed format
type seedFile struct {
	Departments []struct {
		Config types.QueueConfig `json:"config"`
		Agents []types.Agent     `json:"agents"`
	} `json:"departments"`
}

// New creates an empty directory
func New(defaultCapacity int, logger zerolog.Logger) *Directory {
	if defaultCapacity <= 0 {
		defaultCapacity = 50
	}
	return &Directory{
		departments:     make(map[string]*department),
		defaultCapacity: defaultCapacity,
		logger:          logger.With().Str("component", "directory").Logger(),
	}
}

// LoadFile seeds the directory from a JSON file
func (d *Directory) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read directory file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to decode directory file: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range seed.Departments {
		dept := d.ensureLocked(entry.Config.DepartmentID)
		dept.config = entry.Config
		for _, agent := range entry.Agents {
			agent.DepartmentID = entry.Config.DepartmentID
			dept.agents[agent.ID] = agent
		}
	}

	d.logger.Info().
		Int("departments", len(seed.Departments)).
		Str("file", path).
		Msg("directory seeded")
	return nil
}

// ensureLocked returns the department entry, creating a default one if
// needed. Caller holds the write lock.
func (d *Directory) ensureLocked(departmentID string) *department {
	dept, ok := d.departments[departmentID]
	if !ok {
		dept = &department{
			config: d.defaultConfig(departmentID),
			agents: make(map[string]types.Agent),
		}
		d.departments[departmentID] = dept
	}
	return dept
}

func (d *Directory) defaultConfig(departmentID string) types.QueueConfig {
	return types.QueueConfig{
		DepartmentID: departmentID,
		Method:       types.MethodRoundRobin,
		MaxCapacity:  d.defaultCapacity,
	}
}

// GetDepartmentAgents returns the agents registered for a department.
// Unknown departments have no agents, not an error.
func (d *Directory) GetDepartmentAgents(_ context.Context, departmentID string) ([]types.Agent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dept, ok := d.departments[departmentID]
	if !ok {
		return nil, nil
	}

	agents := make([]types.Agent, 0, len(dept.agents))
	for _, agent := range dept.agents {
		agents = append(agents, agent)
	}
	// Map iteration order is random; keep round-robin indexing stable
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents, nil
}

// GetQueueConfig returns the queue configuration for a department. Unknown
// departments get the default configuration so new departments work without
// pre-registration.
func (d *Directory) GetQueueConfig(_ context.Context, departmentID string) (types.QueueConfig, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if dept, ok := d.departments[departmentID]; ok {
		return dept.config, nil
	}
	return d.defaultConfig(departmentID), nil
}

// SetQueueConfig replaces a department's queue configuration
func (d *Directory) SetQueueConfig(cfg types.QueueConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dept := d.ensureLocked(cfg.DepartmentID)
	if cfg.MaxCapacity <= 0 {
		cfg.MaxCapacity = d.defaultCapacity
	}
	if cfg.Method == "" {
		cfg.Method = types.MethodRoundRobin
	}
	dept.config = cfg
}

// UpsertAgent registers or updates an agent in its department
func (d *Directory) UpsertAgent(agent types.Agent) error {
	if agent.ID == "" || agent.DepartmentID == "" {
		return fmt.Errorf("agent id and department id are required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dept := d.ensureLocked(agent.DepartmentID)
	dept.agents[agent.ID] = agent
	return nil
}

// RemoveAgent drops an agent from a department roster
func (d *Directory) RemoveAgent(departmentID, agentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dept, ok := d.departments[departmentID]; ok {
		delete(dept.agents, agentID)
	}
}

// Capacity returns the maximum concurrent active items for a department,
// used for load percentage computation
func (d *Directory) Capacity(departmentID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if dept, ok := d.departments[departmentID]; ok && dept.config.MaxCapacity > 0 {
		return dept.config.MaxCapacity
	}
	return d.defaultCapacity
}

// Departments lists the registered department ids
func (d *Directory) Departments() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.departments))
	for id := range d.departments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
