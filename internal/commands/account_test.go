package commands

import (
	"strings"
	"testing"

	"pkdindustries/warden/internal/identity"
)

func TestRegisterCommandFlow(t *testing.T) {
	ctx, table, _, store := fixture(t)

	// The session exists with an unregistered identity, as WHO resolution
	// leaves it.
	table.Observe("testuser")
	table.SetHostmask("testuser", "test@host.example")
	table.Bind("testuser", identity.New("testuser"))

	cmd := &RegisterCommand{}

	ctx.WithArgs("register", "testuser", "hunter2")
	cmd.Execute(ctx)
	if ctx.LastReply() != "Password set, please try to login now." {
		t.Errorf("reply = %q", ctx.LastReply())
	}

	saved, err := store.Load("testuser")
	if err != nil || saved == nil {
		t.Fatalf("load: %v, %v", saved, err)
	}
	if !saved.MatchPassword("hunter2") {
		t.Error("stored hash does not match the password")
	}

	// Registering again is refused.
	cmd.Execute(ctx)
	if ctx.LastReply() != "Your account is already set or someone else is using this nickname already." {
		t.Errorf("reply = %q", ctx.LastReply())
	}
}

func TestRegisterCommandSomeoneElse(t *testing.T) {
	ctx, _, _, _ := fixture(t)
	ctx.WithArgs("register", "victim", "pw")

	(&RegisterCommand{}).Execute(ctx)
	if ctx.LastReply() != "You can only register yourself, testuser." {
		t.Errorf("reply = %q", ctx.LastReply())
	}
}

func TestRegisterCommandUsage(t *testing.T) {
	ctx, _, _, _ := fixture(t)
	ctx.WithArgs("register")

	(&RegisterCommand{}).Execute(ctx)
	if len(ctx.Replies) != 2 || !strings.HasPrefix(ctx.Replies[0], "Usage: register") {
		t.Errorf("replies = %v", ctx.Replies)
	}
}

func TestRegisterCommandBeforeResolution(t *testing.T) {
	ctx, _, _, _ := fixture(t)
	ctx.WithArgs("register", "testuser", "pw")

	(&RegisterCommand{}).Execute(ctx)
	if ctx.LastReply() != "Please wait a few seconds and try again, the bot is still getting to know you!" {
		t.Errorf("reply = %q", ctx.LastReply())
	}
}

func TestLoginCommandFlow(t *testing.T) {
	ctx, table, _, store := fixture(t)

	id := identity.New("testuser")
	id.PasswordHash = identity.HashPassword("hunter2")
	if err := store.Save(id); err != nil {
		t.Fatal(err)
	}
	table.Observe("testuser")
	table.SetHostmask("testuser", "test@host.example")
	table.Bind("testuser", identity.New("testuser"))

	cmd := &LoginCommand{}

	ctx.WithArgs("login", "testuser", "wrong")
	cmd.Execute(ctx)
	if got := ctx.LastReply(); got != "Password not known. Try again in 20 seconds." {
		t.Errorf("reply = %q", got)
	}

	// Inside the penalty window every attempt is throttled.
	ctx.WithArgs("login", "testuser", "hunter2")
	cmd.Execute(ctx)
	if got := ctx.LastReply(); got != "You're trying too often to log in! Added 20 seconds again." {
		t.Errorf("reply = %q", got)
	}
}

func TestLoginCommandSuccess(t *testing.T) {
	ctx, table, _, store := fixture(t)

	id := identity.New("testuser")
	id.PasswordHash = identity.HashPassword("hunter2")
	if err := store.Save(id); err != nil {
		t.Fatal(err)
	}
	table.Observe("testuser")
	table.SetHostmask("testuser", "test@host.example")
	table.Bind("testuser", identity.New("testuser"))

	ctx.WithArgs("login", "testuser", "hunter2")
	(&LoginCommand{}).Execute(ctx)
	if got := ctx.LastReply(); got != "Password recognised. You've been logged in and your hostmask has been added to the known list." {
		t.Errorf("reply = %q", got)
	}

	s, _ := table.Get("testuser")
	if !s.LoggedIn() {
		t.Error("session not logged in after success")
	}

	(&LoginCommand{}).Execute(ctx)
	if ctx.LastReply() != "You are already logged in!" {
		t.Errorf("reply = %q", ctx.LastReply())
	}
}

func TestSaveSelfCommand(t *testing.T) {
	ctx, table, _, store := fixture(t)
	loggedIn(t, table, store, "testuser")

	ctx.WithArgs("saveself")
	(&SaveSelfCommand{}).Execute(ctx)
	if ctx.LastReply() != "Profile saved." {
		t.Errorf("reply = %q", ctx.LastReply())
	}
}

func TestWhoamiCommand(t *testing.T) {
	ctx, table, _, store := fixture(t)
	loggedIn(t, table, store, "testuser")

	ctx.WithArgs("whoami")
	(&WhoamiCommand{}).Execute(ctx)
	if got := ctx.LastReply(); got != "You are testuser (user), connecting from test@host.example." {
		t.Errorf("reply = %q", got)
	}

	table.AddAdmin("testuser")
	(&WhoamiCommand{}).Execute(ctx)
	if got := ctx.LastReply(); got != "You are testuser (admin), connecting from test@host.example." {
		t.Errorf("reply = %q", got)
	}
}

func TestDebugCommand(t *testing.T) {
	ctx, table, _, store := fixture(t)
	loggedIn(t, table, store, "testuser")

	ctx.WithArgs("debug")
	(&DebugCommand{}).Execute(ctx)
	if got := ctx.LastReply(); got != "hostmasks: [test@host.example]" {
		t.Errorf("reply = %q", got)
	}
}
