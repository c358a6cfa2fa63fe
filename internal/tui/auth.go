package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/policy"
	"github.com/guipratiko/front-conexprob/internal/session"
)

const (
	loginEmail = iota
	loginPassword
)

const (
	registerName = iota
	registerEmail
	registerCPF
	registerPhone
	registerPassword
	registerConfirm
)

const (
	completeToken = iota
	completePassword
	completeConfirm
)

func newLoginForm() form {
	return newForm(
		field{label: "Email", placeholder: "seu@email.com"},
		field{label: "Senha", placeholder: "••••••", password: true},
	)
}

func newRegisterForm() form {
	return newForm(
		field{label: "Nome", placeholder: "Seu nome"},
		field{label: "Email", placeholder: "seu@email.com"},
		field{label: "CPF", placeholder: "000.000.000-00", limit: 14, mask: session.MaskCPF},
		field{label: "Telefone", placeholder: "(00) 00000-0000", limit: 15, mask: session.MaskPhone},
		field{label: "Senha", placeholder: "••••••", password: true},
		field{label: "Confirmar senha", placeholder: "••••••", password: true},
	)
}

// completeScreen sets the password of an account created by an external
// purchase. The token is verified before the password fields are shown.
type completeScreen struct {
	form      form
	account   *domain.PendingAccount
	verifying bool
}

func newCompleteScreen() completeScreen {
	return completeScreen{
		form: newForm(
			field{label: "Token", placeholder: "token recebido por email"},
			field{label: "Nova senha", placeholder: "mínimo 6 caracteres", password: true},
			field{label: "Confirmar senha", placeholder: "••••••", password: true},
		),
	}
}

func (m Model) authenticate(run func(ctx context.Context) session.Result) tea.Cmd {
	return func() tea.Msg {
		return authDoneMsg{result: run(context.Background())}
	}
}

// formKey handles the keys shared by the auth forms. It reports whether the
// key was consumed.
func formKey(f *form, key tea.KeyMsg) bool {
	switch key.String() {
	case "tab", "down":
		f.next()
		return true
	case "shift+tab", "up":
		f.prev()
		return true
	}
	return false
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authDoneMsg:
		m.login.busy = false
		if !msg.result.Success {
			m.login.err = msg.result.Message
			return m, nil
		}
		cmd := m.navigate(policy.RouteDashboard, "")
		return m, cmd

	case tea.KeyMsg:
		if m.login.busy {
			return m, nil
		}
		if formKey(&m.login, msg) {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+r":
			cmd := m.navigate(policy.RouteRegister, "")
			return m, cmd
		case "ctrl+t":
			cmd := m.navigate(policy.RouteCompleteRegistration, "")
			return m, cmd
		case "enter":
			if !m.login.last() {
				m.login.next()
				return m, nil
			}
			email, password := m.login.value(loginEmail), m.login.value(loginPassword)
			if err := (session.LoginForm{Email: strings.TrimSpace(email), Password: password}).Validate(); err != nil {
				m.login.err = validationMessage(err)
				return m, nil
			}
			m.login.err = ""
			m.login.busy = true
			return m, m.authenticate(func(ctx context.Context) session.Result {
				return m.deps.Session.Login(ctx, email, password)
			})
		}
	}
	cmd := m.login.update(msg)
	return m, cmd
}

func (m Model) updateRegister(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authDoneMsg:
		m.register.busy = false
		if !msg.result.Success {
			m.register.err = msg.result.Message
			return m, nil
		}
		cmd := m.navigate(policy.RouteDashboard, "")
		return m, cmd

	case tea.KeyMsg:
		if m.register.busy {
			return m, nil
		}
		if formKey(&m.register, msg) {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+r", "esc":
			cmd := m.navigate(policy.RouteLogin, "")
			return m, cmd
		case "enter":
			if !m.register.last() {
				m.register.next()
				return m, nil
			}
			f := session.RegisterForm{
				Name:            strings.TrimSpace(m.register.value(registerName)),
				Email:           strings.TrimSpace(m.register.value(registerEmail)),
				CPF:             m.register.value(registerCPF),
				Phone:           m.register.value(registerPhone),
				Password:        m.register.value(registerPassword),
				ConfirmPassword: m.register.value(registerConfirm),
			}
			if err := f.Validate(); err != nil {
				m.register.err = validationMessage(err)
				return m, nil
			}
			m.register.err = ""
			m.register.busy = true
			return m, m.authenticate(func(ctx context.Context) session.Result {
				return m.deps.Session.Register(ctx, f.Name, f.Email, f.CPF, f.Phone, f.Password)
			})
		}
	}
	cmd := m.register.update(msg)
	return m, cmd
}

func (m *Model) enterComplete() tea.Cmd {
	m.complete = newCompleteScreen()
	token := strings.TrimSpace(m.deps.RegistrationToken)
	if token == "" {
		return nil
	}
	m.complete.form.setValue(completeToken, token)
	return m.verifyToken(token)
}

func (m *Model) verifyToken(token string) tea.Cmd {
	m.complete.verifying = true
	m.complete.form.err = ""
	store := m.deps.Session
	return func() tea.Msg {
		account, err := store.VerifyRegistrationToken(context.Background(), token)
		return tokenVerifiedMsg{account: account, err: err}
	}
}

func (m Model) updateComplete(msg tea.Msg) (tea.Model, tea.Cmd) {
	c := &m.complete
	switch msg := msg.(type) {
	case tokenVerifiedMsg:
		c.verifying = false
		if msg.err != nil {
			c.account = nil
			c.form.err = tokenMessage(msg.err)
			return m, nil
		}
		account := msg.account
		c.account = &account
		c.form.focus(completePassword)
		return m, nil

	case authDoneMsg:
		c.form.busy = false
		if !msg.result.Success {
			c.form.err = msg.result.Message
			return m, nil
		}
		cmd := m.navigate(policy.RouteDashboard, "")
		return m, cmd

	case tea.KeyMsg:
		if c.verifying || c.form.busy {
			return m, nil
		}
		if msg.String() == "esc" {
			cmd := m.navigate(policy.RouteLogin, "")
			return m, cmd
		}
		if c.account == nil {
			if msg.String() == "enter" {
				cmd := m.verifyToken(strings.TrimSpace(c.form.value(completeToken)))
				return m, cmd
			}
			c.form.focus(completeToken)
			cmd := c.form.update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "tab", "down", "shift+tab", "up":
			if c.form.focused == completePassword {
				c.form.focus(completeConfirm)
			} else {
				c.form.focus(completePassword)
			}
			return m, nil
		case "enter":
			if c.form.focused == completePassword {
				c.form.focus(completeConfirm)
				return m, nil
			}
			token := strings.TrimSpace(c.form.value(completeToken))
			f := session.PasswordForm{
				Password:        c.form.value(completePassword),
				ConfirmPassword: c.form.value(completeConfirm),
			}
			if err := f.Validate(); err != nil {
				c.form.err = validationMessage(err)
				return m, nil
			}
			c.form.err = ""
			c.form.busy = true
			return m, m.authenticate(func(ctx context.Context) session.Result {
				return m.deps.Session.CompleteRegistration(ctx, token, f.Password)
			})
		}
		cmd := c.form.update(msg)
		return m, cmd
	}
	return m, nil
}

func validationMessage(err error) string {
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

// tokenMessage strips the sentinel suffix from a token verification error.
func tokenMessage(err error) string {
	return strings.TrimSuffix(err.Error(), ": "+session.ErrInvalidOrExpiredToken.Error())
}

func (m Model) viewLogin() string {
	body := subtitleStyle.Render("Entrar") + "\n\n" + m.login.view()
	return boxStyle.Render(body) + "\n" +
		help("tab: próximo campo", "enter: entrar", "ctrl+r: criar conta", "ctrl+t: completar cadastro", "ctrl+c: sair")
}

func (m Model) viewRegister() string {
	body := subtitleStyle.Render("Criar conta") + "\n\n" + m.register.view()
	return boxStyle.Render(body) + "\n" +
		help("tab: próximo campo", "enter: cadastrar", "esc: voltar ao login")
}

func (m Model) viewComplete() string {
	c := m.complete
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Completar cadastro"))
	b.WriteString("\n\n")
	switch {
	case c.verifying:
		b.WriteString(mutedStyle.Render("Verificando token..."))
	case c.account == nil:
		b.WriteString(c.form.fields[completeToken].label + "\n" + c.form.inputs[completeToken].View() + "\n\n")
		if c.form.err != "" {
			b.WriteString(errorStyle.Render(c.form.err))
		}
	default:
		b.WriteString(fmt.Sprintf("Olá, %s! Você tem %d créditos.\n", c.account.Name, c.account.Credits))
		if c.account.Email != "" {
			b.WriteString(mutedStyle.Render(c.account.Email) + "\n")
		}
		b.WriteString("\n")
		for _, i := range []int{completePassword, completeConfirm} {
			label := mutedStyle.Render(c.form.fields[i].label)
			if i == c.form.focused {
				label = selectedStyle.Render(c.form.fields[i].label)
			}
			b.WriteString(label + "\n" + c.form.inputs[i].View() + "\n\n")
		}
		if c.form.err != "" {
			b.WriteString(errorStyle.Render(c.form.err) + "\n")
		}
		if c.form.busy {
			b.WriteString(mutedStyle.Render("Aguarde...") + "\n")
		}
	}
	return boxStyle.Render(b.String()) + "\n" + help("enter: confirmar", "esc: voltar ao login")
}
