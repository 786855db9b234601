package sugar

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ErrorModel is a Bubble Tea model that can end with a failure of its own.
type ErrorModel interface {
	tea.Model
	Err() error
}

// RunProgram runs the model and surfaces its error alongside any Bubble
// Tea runtime error, which takes precedence.
func RunProgram(model ErrorModel) (tea.Model, error) {
	resultModel, teaErr := tea.NewProgram(model).Run()
	if teaErr != nil {
		return resultModel, teaErr
	}
	if errorModel, ok := resultModel.(ErrorModel); ok {
		return resultModel, errorModel.Err()
	}
	return resultModel, nil
}
