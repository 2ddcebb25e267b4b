package pages

import (
	"fmt"
	"strings"

	"github.com/timzifer/pharmadesk/forms"
	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/session"
	"github.com/timzifer/pharmadesk/views"
)

// Login authenticates and stores the session.
type Login struct {
	env *Env
}

// NewLogin creates the login page.
func NewLogin(env *Env) *Login {
	return &Login{env: env}
}

// Submit validates the form and dispatches the login. Validation errors are
// returned as *forms.ValidationError and nothing is dispatched.
func (p *Login) Submit(email, password string) error {
	email = strings.TrimSpace(email)
	if err := p.env.Forms.Validate(forms.Login, map[string]any{"email": email, "password": password}); err != nil {
		return err
	}
	if p.env.loading(p.env.Ops.Login.Name()) {
		return fmt.Errorf("login: %w", ErrBusy)
	}
	bridge.Dispatch(p.env.Dispatcher, p.env.Ops.Login, remote.LoginRequest{Email: email, Password: password})
	return nil
}

// Sync persists a successful login and navigates once.
func (p *Login) Sync() {
	settle(p.env, p.env.Ops.Login.Key, func(user remote.User) {
		err := p.env.Session.Save(session.Session{Token: user.Token, Email: user.Email, Name: user.Name, Role: user.Role})
		if err != nil {
			p.env.Logger.Error().Err(err).Msg("persist session")
			p.env.Notifier.Error(err.Error())
			return
		}
		p.env.Router.Navigate(RouteStores)
		p.env.Notifier.Success(MsgLoggedIn)
	})
}

// Render builds the form state.
func (p *Login) Render() FormView {
	return FormView{Busy: p.env.loading(p.env.Ops.Login.Name()), SubmitLabel: "تسجيل الدخول"}
}

// RegisterDetails completes a new account.
type RegisterDetails struct {
	env *Env
}

// NewRegisterDetails creates the page.
func NewRegisterDetails(env *Env) *RegisterDetails {
	return &RegisterDetails{env: env}
}

// Submit validates and dispatches the details.
func (p *RegisterDetails) Submit(in remote.RegisterDetails) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	values := map[string]any{"name": in.Name, "location": in.Location, "phoneNumber": in.PhoneNumber}
	if err := p.env.Forms.Validate(forms.RegisterDetails, values); err != nil {
		return err
	}
	if p.env.loading(p.env.Ops.CompleteInfo.Name()) {
		return fmt.Errorf("complete info: %w", ErrBusy)
	}
	bridge.Dispatch(p.env.Dispatcher, p.env.Ops.CompleteInfo, in)
	return nil
}

// Sync navigates to the pending review page once the details were accepted.
func (p *RegisterDetails) Sync() {
	settle(p.env, p.env.Ops.CompleteInfo.Key, func(remote.Ack) {
		p.env.Router.Navigate(RouteRegistrationPending)
		p.env.Notifier.Success(MsgDetailsSent)
	})
}

// Render builds the form state.
func (p *RegisterDetails) Render() FormView {
	return FormView{Busy: p.env.loading(p.env.Ops.CompleteInfo.Name()), SubmitLabel: "إرسال"}
}

// StoreRow is a row of the stores listing.
type StoreRow struct {
	ID          int64
	Name        string
	Location    string
	PhoneNumber string
}

// StoresView is the stores page render model.
type StoresView struct {
	Stores   views.ListView[StoreRow]
	Register FormView
}

// Stores lists the warehouse inventories and registers new ones.
type Stores struct {
	env      *Env
	revision int
	fetch    bridge.Effect
}

// NewStores creates the page.
func NewStores(env *Env) *Stores {
	return &Stores{env: env}
}

// Register validates and dispatches a store registration.
func (p *Stores) Register(in remote.RegisterStoreRequest) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	values := map[string]any{"name": in.Name, "location": in.Location, "phoneNumber": in.PhoneNumber}
	if err := p.env.Forms.Validate(forms.RegisterStore, values); err != nil {
		return err
	}
	if p.env.loading(p.env.Ops.RegisterStore.Name()) {
		return fmt.Errorf("register store: %w", ErrBusy)
	}
	bridge.Dispatch(p.env.Dispatcher, p.env.Ops.RegisterStore, in)
	return nil
}

// Refresh refetches the listing on the next Sync.
func (p *Stores) Refresh() { p.revision++ }

// Sync applies a finished registration and fetches the listing when it is
// new or stale.
func (p *Stores) Sync() {
	settle(p.env, p.env.Ops.RegisterStore.Key, func(remote.Store) {
		p.env.Notifier.Success(MsgStoreRegistered)
		p.revision++
	})
	revision := p.revision
	p.fetch.Run(func() {
		bridge.Dispatch(p.env.Dispatcher, p.env.Ops.Stores, struct{}{})
	}, revision)
}

// Render builds the page.
func (p *Stores) Render() StoresView {
	view := p.env.view()
	key := p.env.Ops.Stores.Key
	stores, ok := bridge.SelectData(view, key)
	page := views.Page[remote.Store]{Items: stores, TotalRecords: len(stores), Present: ok}
	return StoresView{
		Stores: views.RenderList(bridge.SelectStatus(view, key), page, 0, 0, func(s remote.Store) StoreRow {
			return StoreRow{ID: s.ID, Name: s.Name, Location: s.Location, PhoneNumber: s.PhoneNumber}
		}),
		Register: FormView{Busy: p.env.loading(p.env.Ops.RegisterStore.Name()), SubmitLabel: "إضافة"},
	}
}

// Logout clears the session, the basket and every operation record, then
// returns to the login page.
func Logout(env *Env) error {
	if err := env.Session.Clear(); err != nil {
		env.Notifier.Error(err.Error())
		return fmt.Errorf("logout: %w", err)
	}
	env.Basket.Clear()
	for _, name := range env.Ops.Names() {
		env.Dispatcher.Reset(name, true)
	}
	env.Router.Navigate(RouteLogin)
	env.Notifier.Success(MsgLoggedOut)
	return nil
}
