/*
 * This file is part of Counter Bot.
 * Copyright (C) 2019  Viktor
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package storage

import (
	"sort"
	"sync"

	"github.com/nuetoban/counter-bot/counting"
	"github.com/nuetoban/counter-bot/model"
)

// Memory keeps one counting machine per guild for the lifetime of the process
type Memory struct {
	fabric *counting.MachineFabric

	// mu guards the maps, never the machines
	mu       sync.Mutex
	machines map[string]*counting.Machine
	locks    map[string]*guildLocks
}

// Two locks per guild: state is held only while a machine is read or
// changed, turn is held across a whole submission including chat calls.
// Readers never take turn.
type guildLocks struct {
	state sync.Mutex
	turn  sync.Mutex
}

func NewMemory(fabric *counting.MachineFabric) *Memory {
	return &Memory{
		fabric:   fabric,
		machines: make(map[string]*counting.Machine),
		locks:    make(map[string]*guildLocks),
	}
}

// WithGuild runs fn with exclusive access to the guild's machine,
// creating the machine from defaults when the guild has none.
// fn must not block on network calls.
func (m *Memory) WithGuild(guildID string, fn func(*counting.Machine) error) error {
	l := m.guildLocks(guildID)
	l.state.Lock()
	defer l.state.Unlock()

	m.mu.Lock()
	ma, ok := m.machines[guildID]
	if !ok {
		ma = m.fabric.NewMachine(guildID)
		m.machines[guildID] = ma
	}
	m.mu.Unlock()

	return fn(ma)
}

// WithTurn runs fn after every earlier WithTurn of the guild has returned.
// It does not lock the machine, so readers and commands are never held up
// by slow work inside fn.
func (m *Memory) WithTurn(guildID string, fn func() error) error {
	l := m.guildLocks(guildID)
	l.turn.Lock()
	defer l.turn.Unlock()

	return fn()
}

// Remove deletes all counting data of the guild
func (m *Memory) Remove(guildID string) {
	l := m.guildLocks(guildID)
	l.state.Lock()
	defer l.state.Unlock()

	m.mu.Lock()
	delete(m.machines, guildID)
	m.mu.Unlock()
}

// Get returns a copy of the guild's game without creating it
func (m *Memory) Get(guildID string) (model.GameState, bool) {
	l := m.guildLocks(guildID)
	l.state.Lock()
	defer l.state.Unlock()

	m.mu.Lock()
	ma, ok := m.machines[guildID]
	m.mu.Unlock()
	if !ok {
		return model.GameState{}, false
	}

	return ma.State, true
}

// Snapshot copies every tracked game, ordered by guild ID
func (m *Memory) Snapshot() []model.GuildGame {
	ids := m.guildIDs()
	games := make([]model.GuildGame, 0, len(ids))

	for _, id := range ids {
		if state, ok := m.Get(id); ok {
			games = append(games, model.GuildGame{GuildID: id, State: state})
		}
	}

	return games
}

// Statistics summarizes tracked games for the metrics exporter
func (m *Memory) Statistics() (model.Statistics, error) {
	var stats model.Statistics

	for _, id := range m.guildIDs() {
		l := m.guildLocks(id)
		l.state.Lock()

		m.mu.Lock()
		ma, ok := m.machines[id]
		m.mu.Unlock()

		if ok {
			stats.Guilds++
			if ma.Phase() == counting.PhaseCounting {
				stats.ActiveGuilds++
			}
			if ma.State.HiddenFromLeaderboard {
				stats.HiddenGuilds++
			}
			if ma.State.Count > stats.HighestCount {
				stats.HighestCount = ma.State.Count
			}
		}

		l.state.Unlock()
	}

	return stats, nil
}

func (m *Memory) guildIDs() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.machines))
	for id := range m.machines {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Locks are kept after Remove so waiters and newcomers share them
func (m *Memory) guildLocks(guildID string) *guildLocks {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[guildID]
	if !ok {
		l = &guildLocks{}
		m.locks[guildID] = l
	}
	return l
}
