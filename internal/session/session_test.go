package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edgard/tgcollector/internal/errs"
	"github.com/edgard/tgcollector/internal/telegram"
)

type fakeTransport struct {
	authorized  bool
	needsPass   bool
	signInErr   error
	passwordErr error
	session     []byte

	connectedWith []byte
	calls         []string
	gotCode       string
	gotPassword   string
}

func (f *fakeTransport) Connect(_ context.Context, session []byte) error {
	f.calls = append(f.calls, "connect")
	f.connectedWith = session
	return nil
}

func (f *fakeTransport) IsAuthorized(context.Context) (bool, error) {
	f.calls = append(f.calls, "is_authorized")
	return f.authorized, nil
}

func (f *fakeTransport) RequestLoginCode(_ context.Context, phone string) (telegram.LoginToken, error) {
	f.calls = append(f.calls, "request_code")
	return telegram.LoginToken{Phone: phone, Hash: "hash"}, nil
}

func (f *fakeTransport) SignIn(_ context.Context, token telegram.LoginToken, code string) error {
	f.calls = append(f.calls, "sign_in")
	f.gotCode = code
	if f.signInErr != nil {
		return f.signInErr
	}
	if f.needsPass {
		return &telegram.PasswordRequiredError{Hint: "hint"}
	}
	f.authorized = true
	return nil
}

func (f *fakeTransport) CheckPassword(_ context.Context, password string) error {
	f.calls = append(f.calls, "check_password")
	f.gotPassword = password
	if f.passwordErr != nil {
		return f.passwordErr
	}
	f.authorized = true
	return nil
}

func (f *fakeTransport) NextUpdate(context.Context, time.Duration) (*telegram.Update, error) {
	return nil, telegram.ErrTimeout
}

func (f *fakeTransport) Session() ([]byte, error) {
	return f.session, nil
}

func (f *fakeTransport) Close() error {
	f.calls = append(f.calls, "close")
	return nil
}

func TestFileStoreCreateLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "session.session")
	store := NewFileStore(path)

	if _, err := store.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on missing file error = %v, want ErrNotFound", err)
	}

	created, err := store.Create("+15550100")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Authorized {
		t.Error("fresh session reports authorized")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Phone != "+15550100" || loaded.Authorized != created.Authorized {
		t.Errorf("Load() = %+v, want phone and authorization of %+v", loaded, created)
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(path), probeFileName)); !os.IsNotExist(err) {
		t.Errorf("write probe left behind: %v", err)
	}
}

func TestFileStoreSaveKeepsData(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "s.session"))
	env, err := store.Create("")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	env.Data = []byte{0x00, 0x01, 0xfe, 0xff}
	env.Authorized = true
	if err := store.Save(env); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Authorized || string(loaded.Data) != string(env.Data) {
		t.Errorf("Load() = %+v, want authorized with data %v", loaded, env.Data)
	}
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.session")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path).Load(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestManagerAcquire(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantState State
	}{
		{name: "missing file", wantState: SessionCreated},
		{name: "corrupt file", content: "{broken", wantState: SessionCreated},
		{name: "valid file", content: `{"version":1,"authorized":true}`, wantState: SessionLoaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "session.session")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			m := NewManager(NewFileStore(path), "+15550100", StaticPrompter{}, nil)
			if _, err := m.Acquire(); err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			if m.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", m.State(), tt.wantState)
			}

			if _, err := NewFileStore(path).Load(); err != nil {
				t.Errorf("session not loadable after Acquire: %v", err)
			}
		})
	}
}

func TestManagerAuthenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		transport    *fakeTransport
		prompter     Prompter
		wantAuthErr  bool
		wantState    State
		wantCalls    string
		wantPassword string
	}{
		{
			name:      "already authorized",
			transport: &fakeTransport{authorized: true},
			prompter:  StaticPrompter{},
			wantState: Authenticated,
			wantCalls: "is_authorized",
		},
		{
			name:      "code only",
			transport: &fakeTransport{},
			prompter:  StaticPrompter{LoginCode: "12345"},
			wantState: Authenticated,
			wantCalls: "is_authorized,request_code,sign_in",
		},
		{
			name:         "second factor",
			transport:    &fakeTransport{needsPass: true},
			prompter:     StaticPrompter{LoginCode: "12345", LoginPassword: "secret"},
			wantState:    Authenticated,
			wantCalls:    "is_authorized,request_code,sign_in,check_password",
			wantPassword: "secret",
		},
		{
			name:        "rejected code",
			transport:   &fakeTransport{signInErr: errors.New("PHONE_CODE_INVALID")},
			prompter:    StaticPrompter{LoginCode: "00000"},
			wantAuthErr: true,
			wantState:   AwaitingCode,
			wantCalls:   "is_authorized,request_code,sign_in",
		},
		{
			name:        "rejected password",
			transport:   &fakeTransport{needsPass: true, passwordErr: errors.New("PASSWORD_HASH_INVALID")},
			prompter:    StaticPrompter{LoginCode: "12345", LoginPassword: "wrong"},
			wantAuthErr: true,
			wantState:   AwaitingSecondFactor,
			wantCalls:   "is_authorized,request_code,sign_in,check_password",
		},
		{
			name:        "no code available",
			transport:   &fakeTransport{},
			prompter:    StaticPrompter{},
			wantAuthErr: true,
			wantState:   AwaitingCode,
			wantCalls:   "is_authorized,request_code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := NewFileStore(filepath.Join(t.TempDir(), "session.session"))
			m := NewManager(store, "+15550100", tt.prompter, nil)

			err := m.Authenticate(context.Background(), tt.transport)
			if tt.wantAuthErr {
				if !errs.IsAuth(err) {
					t.Errorf("Authenticate() error = %v, want AuthError", err)
				}
			} else if err != nil {
				t.Errorf("Authenticate() error = %v", err)
			}

			if m.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", m.State(), tt.wantState)
			}
			if got := strings.Join(tt.transport.calls, ","); got != tt.wantCalls {
				t.Errorf("calls = %s, want %s", got, tt.wantCalls)
			}
			if tt.transport.gotPassword != tt.wantPassword {
				t.Errorf("password = %q, want %q", tt.transport.gotPassword, tt.wantPassword)
			}
		})
	}
}

func TestManagerOpenPersistsAndResumes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "session.session")
	first := &fakeTransport{session: []byte("auth-key")}
	m := NewManager(NewFileStore(path), "+15550100", StaticPrompter{LoginCode: "12345"}, nil)

	if err := m.Open(ctx, first); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	loaded, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Authorized || string(loaded.Data) != "auth-key" {
		t.Errorf("persisted envelope = %+v", loaded)
	}

	// A restart reuses the stored session without another login.
	second := &fakeTransport{authorized: true}
	restarted := NewManager(NewFileStore(path), "+15550100", StaticPrompter{}, nil)
	if err := restarted.Open(ctx, second); err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if string(second.connectedWith) != "auth-key" {
		t.Errorf("Connect() session = %q, want auth-key", second.connectedWith)
	}
	if restarted.State() != Authenticated {
		t.Errorf("State() = %v, want authenticated", restarted.State())
	}
}

func TestManagerOpenClosesOnAuthFailure(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	m := NewManager(NewFileStore(filepath.Join(t.TempDir(), "s")), "+15550100", StaticPrompter{}, nil)

	if err := m.Open(context.Background(), ft); !errs.IsAuth(err) {
		t.Fatalf("Open() error = %v, want AuthError", err)
	}
	if last := ft.calls[len(ft.calls)-1]; last != "close" {
		t.Errorf("last call = %q, want close", last)
	}
}

func TestTerminalPrompterReadsLines(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	p := NewTerminalPrompter(strings.NewReader(" 12345 \nhunter2\n"), &out)

	code, err := p.Code(context.Background(), "+15550100")
	if err != nil || code != "12345" {
		t.Errorf("Code() = %q, %v", code, err)
	}
	pw, err := p.Password(context.Background(), "")
	if err != nil || pw != "hunter2" {
		t.Errorf("Password() = %q, %v", pw, err)
	}
	if !strings.Contains(out.String(), "+15550100") {
		t.Errorf("prompt %q does not mention the phone", out.String())
	}

	if _, err := p.Code(context.Background(), "+1"); !errors.Is(err, ErrNoInput) {
		t.Errorf("Code() at EOF error = %v, want ErrNoInput", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if got := AwaitingSecondFactor.String(); got != "awaiting_second_factor" {
		t.Errorf("String() = %q", got)
	}
	if got := State(99).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}
