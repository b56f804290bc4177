package command

import (
	"time"

	"vadimgribanov.com/tg-remind/internal/models"
)

// Command is the parsed form of one "$"-prefixed chat command.
type Command interface {
	isCommand()
}

// ScheduleReminder carries one candidate trigger time per expanded permutation
// of the time expression, in discovery order. A plain expression yields
// exactly one.
type ScheduleReminder struct {
	Times   []time.Time
	Message string
}

type CancelReminder struct {
	ID int
}

type SetInterval struct {
	ID        int
	Modifiers []models.TimeModifier
}

type ClearInterval struct {
	ID int
}

type SetTimezone struct {
	Name string
}

type SetTimeFormat struct {
	Format models.TimeFormat
}

type ListReminders struct{}

type Help struct{}

func (ScheduleReminder) isCommand() {}
func (CancelReminder) isCommand()   {}
func (SetInterval) isCommand()      {}
func (ClearInterval) isCommand()    {}
func (SetTimezone) isCommand()      {}
func (SetTimeFormat) isCommand()    {}
func (ListReminders) isCommand()    {}
func (Help) isCommand()             {}

// Modifier is one surface unit of a time expression: either a single
// TimeModifier or a branch of alternatives to permute over.
type Modifier struct {
	Single *models.TimeModifier
	Branch []models.TimeModifier
}

// Expand performs the iterative cross-product over branch modifiers. It
// starts from one empty candidate sequence; a plain modifier is appended to
// every candidate, a branch of k alternatives replaces the n candidates with
// n*k, candidate-major, so discovery order is deterministic.
func Expand(modifiers []Modifier) [][]models.TimeModifier {
	candidates := [][]models.TimeModifier{{}}
	for _, m := range modifiers {
		if m.Single != nil {
			for i := range candidates {
				candidates[i] = append(candidates[i], *m.Single)
			}
			continue
		}
		next := make([][]models.TimeModifier, 0, len(candidates)*len(m.Branch))
		for _, candidate := range candidates {
			for _, alt := range m.Branch {
				seq := make([]models.TimeModifier, len(candidate), len(candidate)+1)
				copy(seq, candidate)
				next = append(next, append(seq, alt))
			}
		}
		candidates = next
	}
	return candidates
}
