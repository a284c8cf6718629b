// Package env wraps a quest bridge into the reset/step shape agents drive,
// hiding jump-ID opacity behind 1-based choice indices.
package env

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/questbench/domain/quest"
)

// Bridge is the subset of the Engine Bridge the environment drives.
// Satisfied by infrastructure/bridge.Bridge.
type Bridge interface {
	Start(ctx context.Context, questPath, language string) (quest.State, error)
	Step(ctx context.Context, jumpID int) (quest.State, error)
	GetState(ctx context.Context) (quest.State, error)
	Close(ctx context.Context) error
}

// Observation is what an agent sees after reset or step.
type Observation struct {
	LocationID      string
	Text            string
	ChoicesRendered []string
	ParamsState     []string
	ChoiceMap       map[int]int // 1-based index -> jump_id
}

// Environment presents one quest bridge session as reset/step.
type Environment struct {
	bridge Bridge
	last   quest.State
}

// New wraps a started bridge.
func New(bridge Bridge) *Environment {
	return &Environment{bridge: bridge}
}

// Reset starts the quest and returns the initial observation.
func (e *Environment) Reset(ctx context.Context, questPath, language string) (Observation, error) {
	st, err := e.bridge.Start(ctx, questPath, language)
	if err != nil {
		return Observation{}, err
	}
	e.last = st
	return e.observe(st), nil
}

// Step performs the 1-based choice and returns the new observation, the
// reward, whether the quest has ended, and an info string (end reason hint).
func (e *Environment) Step(ctx context.Context, action int) (Observation, float64, bool, string, error) {
	choiceMap := buildChoiceMap(e.last)
	jumpID, ok := choiceMap[action]
	if !ok {
		return Observation{}, 0, false, "", &InvalidAction{Action: action, NumChoices: len(choiceMap)}
	}

	st, err := e.bridge.Step(ctx, jumpID)
	if err != nil {
		return Observation{}, 0, false, "", err
	}
	e.last = st

	reward := 0.0
	if st.GameState == quest.GameWin {
		reward = 1.0
	}
	done := e.Terminal(st)
	return e.observe(st), reward, done, string(st.GameState), nil
}

// Terminal reports whether a state ends the quest.
func (e *Environment) Terminal(st quest.State) bool {
	return st.GameState != quest.GameRunning
}

// Close releases the underlying bridge subprocess.
func (e *Environment) Close(ctx context.Context) error {
	return e.bridge.Close(ctx)
}

// LastState returns the most recently observed game state, for callers
// that need the terminal verdict (win/fail/dead) alongside an
// Observation, e.g. right after Reset.
func (e *Environment) LastState() quest.State {
	return e.last
}

func (e *Environment) observe(st quest.State) Observation {
	rendered := make([]string, len(st.Choices))
	for i, c := range st.Choices {
		rendered[i] = c.Text
	}
	return Observation{
		LocationID:      st.LocationID,
		Text:            st.Text,
		ChoicesRendered: rendered,
		ParamsState:     st.ParamsState,
		ChoiceMap:       buildChoiceMap(st),
	}
}

func buildChoiceMap(st quest.State) map[int]int {
	m := make(map[int]int, len(st.Choices))
	for i, c := range st.Choices {
		m[i+1] = c.JumpID
	}
	return m
}

// InvalidAction is raised when action is outside [1, len(choice_map)].
// It never reaches persistence as an outcome and does not
// consume a bridge step.
type InvalidAction struct {
	Action     int
	NumChoices int
}

func (e *InvalidAction) Error() string {
	return fmt.Sprintf("invalid action %d: must be in [1, %d]", e.Action, e.NumChoices)
}
