// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package kilombo reads and writes the JSON files produced by the Kilombo
// kilobot simulator.
package kilombo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r2"
)

var ErrMalformed = errors.New("kilombo: malformed states")

// BotState is one robot entry of a snapshot. State is simulator defined and
// kept verbatim.
type BotState struct {
	ID        int             `json:"ID"`
	Direction float64         `json:"direction"`
	State     json.RawMessage `json:"state,omitempty"`
	X         *float64        `json:"x_position"`
	Y         *float64        `json:"y_position"`
}

// Snapshot is the swarm at one tick.
type Snapshot struct {
	BotStates []BotState `json:"bot_states"`
	Ticks     int64      `json:"ticks"`
}

// Positions returns the robot positions in bot_states order.
func (s Snapshot) Positions() []r2.Point {
	out := make([]r2.Point, len(s.BotStates))
	for i, b := range s.BotStates {
		out[i] = r2.Point{X: *b.X, Y: *b.Y}
	}
	return out
}

// Simulation is the subset of simulation.json the analysis uses.
type Simulation struct {
	ArenaFileName       string  `json:"arenaFileName"`
	ArenaNormalizedArea float64 `json:"arenaNormalizedArea"`
	NBots               int     `json:"nBots"`
}

// LoadStates reads a states file. Both the endstate object and the
// simulationStates array are accepted.
func LoadStates(path string) ([]Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kilombo: %w", err)
	}
	defer f.Close()

	snaps, err := DecodeStates(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snaps, nil
}

// DecodeStates decodes a single snapshot object or an array of snapshots,
// telling them apart by the first JSON token.
func DecodeStates(r io.Reader) ([]Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("kilombo: %w", err)
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	var snaps []Snapshot
	switch trimmed[0] {
	case '{':
		var s Snapshot
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		snaps = []Snapshot{s}
	case '[':
		if err := json.Unmarshal(trimmed, &snaps); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: expected object or array, got %q", ErrMalformed, trimmed[0])
	}

	if err := validate(snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

func validate(snaps []Snapshot) error {
	if len(snaps) == 0 {
		return fmt.Errorf("%w: no snapshots", ErrMalformed)
	}
	n := len(snaps[0].BotStates)
	for i, s := range snaps {
		if len(s.BotStates) == 0 {
			return fmt.Errorf("%w: snapshot %d (tick %d) has no bot_states", ErrMalformed, i, s.Ticks)
		}
		if len(s.BotStates) != n {
			return fmt.Errorf("%w: snapshot %d (tick %d) has %d bots, want %d",
				ErrMalformed, i, s.Ticks, len(s.BotStates), n)
		}
		for j, b := range s.BotStates {
			if b.X == nil || b.Y == nil {
				return fmt.Errorf("%w: snapshot %d (tick %d) bot entry %d has no position",
					ErrMalformed, i, s.Ticks, j)
			}
		}
	}
	return nil
}

// LoadSimulation reads simulation.json. Unknown keys are ignored.
func LoadSimulation(path string) (*Simulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kilombo: %w", err)
	}
	var sim Simulation
	if err := json.Unmarshal(data, &sim); err != nil {
		return nil, fmt.Errorf("kilombo: %s: %w", path, err)
	}
	if sim.NBots < 0 {
		return nil, fmt.Errorf("kilombo: %s: negative nBots %d", path, sim.NBots)
	}
	return &sim, nil
}

// NewSnapshot builds a snapshot placing robot i at positions[i].
func NewSnapshot(ticks int64, positions []r2.Point) Snapshot {
	s := Snapshot{
		BotStates: make([]BotState, len(positions)),
		Ticks:     ticks,
	}
	for i, p := range positions {
		x, y := p.X, p.Y
		s.BotStates[i] = BotState{ID: i, X: &x, Y: &y}
	}
	return s
}

// WriteEndState writes s in the endstate format.
func WriteEndState(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("kilombo: %w", err)
	}
	return nil
}
