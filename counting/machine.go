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

package counting

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"

	"github.com/nuetoban/counter-bot/model"
)

// Phases of a guild game
const (
	PhaseWaiting  = "waiting"
	PhaseCounting = "counting"
)

const (
	eventAccept = "accept"
	eventReset  = "reset"
)

// Machine stores state of the counting game in one guild.
// Callers must hold the guild lock of the store while using it.
type Machine struct {
	GuildID string
	State   model.GameState
	FSM     *fsm.FSM

	log logrus.FieldLogger
}

// MachineFabric aims to produce new machines with freezed defaults
type MachineFabric struct {
	Defaults model.Defaults
	Log      logrus.FieldLogger
}

// NewMachineFabric returns MachineFabric
func NewMachineFabric(defaults model.Defaults, log logrus.FieldLogger) *MachineFabric {
	return &MachineFabric{
		Defaults: defaults,
		Log:      log,
	}
}

// NewMachine returns Machine with freezed defaults
func (f *MachineFabric) NewMachine(guildID string) *Machine {
	return NewMachine(guildID, f.Defaults, f.Log)
}

// NewMachine returns new Machine instance
func NewMachine(guildID string, defaults model.Defaults, log logrus.FieldLogger) *Machine {
	if log == nil {
		log = logrus.StandardLogger()
	}

	m := &Machine{
		GuildID: guildID,
		State: model.GameState{
			CountingChannel:       defaults.CountingChannel,
			ResetOnIncorrect:      defaults.ResetOnIncorrect,
			HiddenFromLeaderboard: defaults.HiddenFromLeaderboard,
		},
		log: log,
	}

	m.FSM = fsm.NewFSM(
		PhaseWaiting,
		fsm.Events{
			{Name: eventAccept, Src: []string{PhaseWaiting, PhaseCounting}, Dst: PhaseCounting},
			{Name: eventReset, Src: []string{PhaseWaiting, PhaseCounting}, Dst: PhaseWaiting},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.log.Debugf("Guild %s: game phase %s -> %s", m.GuildID, e.Src, e.Dst)
			},
		},
	)

	return m
}

// Evaluate checks a submission against the game rules and applies
// the resulting state change
func (m *Machine) Evaluate(channelName, authorID, text string) model.Decision {
	if channelName != m.State.CountingChannel {
		return model.Decision{Outcome: model.Ignore}
	}

	if !isDigits(text) {
		return model.Decision{Outcome: model.RejectDelete, Reason: model.ReasonMalformed}
	}

	// Same user twice, even with the right number
	if m.State.LastSubmitter != "" && authorID == m.State.LastSubmitter {
		return model.Decision{Outcome: model.RejectDelete, Reason: model.ReasonConsecutiveAuthor}
	}

	// Out of range literals can never be the next number
	value, err := strconv.ParseUint(text, 10, 64)
	if err == nil && m.State.Count < math.MaxUint64 && value == m.State.Count+1 {
		m.State.Count = value
		m.State.LastSubmitter = authorID
		m.transition(eventAccept)
		return model.Decision{Outcome: model.AcceptRepublish, Value: value}
	}

	if m.State.ResetOnIncorrect {
		m.State.Count = 0
		m.State.LastSubmitter = ""
		m.transition(eventReset)
		return model.Decision{Outcome: model.RejectAndReset, Reason: model.ReasonWrongValue}
	}

	return model.Decision{Outcome: model.RejectDelete, Reason: model.ReasonWrongValue}
}

// Configure replaces the policy fields of the game.
// An empty channel falls back to the default counting channel.
func (m *Machine) Configure(channel string, resetOnIncorrect, hidden bool, defaults model.Defaults) {
	if channel == "" {
		channel = defaults.CountingChannel
	}
	m.State.CountingChannel = channel
	m.State.ResetOnIncorrect = resetOnIncorrect
	m.State.HiddenFromLeaderboard = hidden
}

// ToggleVisibility flips the leaderboard visibility and returns the new hidden flag
func (m *Machine) ToggleVisibility() bool {
	m.State.HiddenFromLeaderboard = !m.State.HiddenFromLeaderboard
	return m.State.HiddenFromLeaderboard
}

// Phase returns current game phase
func (m *Machine) Phase() string {
	return m.FSM.Current()
}

func (m *Machine) transition(event string) {
	err := m.FSM.Event(context.Background(), event)

	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		m.log.Errorf("Machine: transition: cannot fire %q in guild %s: %v", event, m.GuildID, err)
	}
}

// isDigits reports whether s is a non-empty run of ASCII digits
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
