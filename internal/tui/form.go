package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	label       string
	placeholder string
	password    bool
	limit       int
	mask        func(string) string
}

// form is a vertical list of text inputs with one focused at a time.
type form struct {
	fields  []field
	inputs  []textinput.Model
	focused int
	err     string
	busy    bool
}

func newForm(fields ...field) form {
	f := form{fields: fields, inputs: make([]textinput.Model, len(fields))}
	for i, fd := range fields {
		in := textinput.New()
		in.Placeholder = fd.placeholder
		in.CharLimit = 120
		if fd.limit > 0 {
			in.CharLimit = fd.limit
		}
		in.Width = 40
		if fd.password {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.inputs[i] = in
	}
	f.focus(0)
	return f
}

func (f *form) focus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	i = (i + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.focused = i
	f.inputs[i].Focus()
}

func (f *form) next() { f.focus(f.focused + 1) }
func (f *form) prev() { f.focus(f.focused - 1) }

func (f *form) last() bool { return f.focused == len(f.inputs)-1 }

// update forwards a key to the focused input and reapplies its mask.
func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	in := &f.inputs[f.focused]
	*in, cmd = in.Update(msg)
	if mask := f.fields[f.focused].mask; mask != nil {
		if masked := mask(in.Value()); masked != in.Value() {
			in.SetValue(masked)
			in.CursorEnd()
		}
	}
	return cmd
}

func (f *form) value(i int) string { return f.inputs[i].Value() }

func (f *form) setValue(i int, v string) { f.inputs[i].SetValue(v) }

func (f *form) reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	f.err = ""
	f.busy = false
	f.focus(0)
}

func (f form) view() string {
	var out string
	for i, fd := range f.fields {
		label := mutedStyle.Render(fd.label)
		if i == f.focused {
			label = selectedStyle.Render(fd.label)
		}
		out += label + "\n" + f.inputs[i].View() + "\n\n"
	}
	if f.err != "" {
		out += errorStyle.Render(f.err) + "\n"
	}
	if f.busy {
		out += mutedStyle.Render("Aguarde...") + "\n"
	}
	return out
}
