package agent

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/felixgeelhaar/questbench/domain/env"
)

// promptVars are the variables the opaque system_template/action_template
// are rendered with. The agent only ever supplies data, it
// never controls template structure.
type promptVars struct {
	Observation     string
	Choices         []string
	NumChoices      int
	ParamsState     []string
	MemoryBlock     string
	LoopHint        string
	AllowCalculator bool
}

func (a *Agent) renderVars(obs env.Observation, escape, allowCalc bool) promptVars {
	v := promptVars{
		Observation:     obs.Text,
		Choices:         obs.ChoicesRendered,
		NumChoices:      len(obs.ChoicesRendered),
		ParamsState:     obs.ParamsState,
		AllowCalculator: allowCalc,
	}
	if escape {
		v.LoopHint = "You have visited this state repeatedly and kept choosing the same option. Prefer a different choice this time."
	}
	v.MemoryBlock = a.renderMemoryBlock()
	return v
}

// render expands both templates against vars. Templates are stored
// verbatim from AgentConfig; a parse error here is the caller's
// configuration mistake, surfaced as a parse_error decision rather than a
// crash.
func (a *Agent) render(vars promptVars) (system, action string, err error) {
	system, err = renderTemplate(a.cfg.SystemTemplate, vars)
	if err != nil {
		return "", "", fmt.Errorf("render system_template: %w", err)
	}
	action, err = renderTemplate(a.cfg.ActionTemplate, vars)
	if err != nil {
		return "", "", fmt.Errorf("render action_template: %w", err)
	}
	return system, action, nil
}

func renderTemplate(src string, vars promptVars) (string, error) {
	tmpl, err := template.New("prompt").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
