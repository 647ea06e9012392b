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

package model

// Outcome of evaluating a submission
type Outcome int

const (
	Ignore Outcome = iota
	RejectDelete
	AcceptRepublish
	RejectAndReset
)

var outcomeNames = [...]string{
	Ignore:          "ignore",
	RejectDelete:    "reject",
	AcceptRepublish: "accept",
	RejectAndReset:  "reset",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Reason explains a rejection
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonMalformed         Reason = "malformed"
	ReasonConsecutiveAuthor Reason = "consecutive_author"
	ReasonWrongValue        Reason = "wrong_value"
)

// Decision is what the engine decided for one submission.
// Value is only meaningful for AcceptRepublish.
type Decision struct {
	Outcome Outcome
	Value   uint64
	Reason  Reason
}

// Deletes reports whether the original message has to be removed
func (d Decision) Deletes() bool {
	return d.Outcome != Ignore
}
