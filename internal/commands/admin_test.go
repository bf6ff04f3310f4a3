package commands

import (
	"testing"
)

func TestMakeAdminCommand(t *testing.T) {
	ctx, table, _, store := fixture(t)
	loggedIn(t, table, store, "bob")

	ctx.WithArgs("makeadmin", "bob")
	(&MakeAdminCommand{}).Execute(ctx)

	if ctx.LastReply() != "User bob has been made an admin." {
		t.Errorf("reply = %q", ctx.LastReply())
	}
	if !table.IsAdmin("bob") {
		t.Error("bob missing from the live admin set")
	}

	// The flag reaches the archive, not just the live set.
	saved, err := store.Load("bob")
	if err != nil || saved == nil {
		t.Fatalf("load: %v, %v", saved, err)
	}
	if !saved.Admin {
		t.Error("admin flag not persisted")
	}

	// The new admin is notified in a query.
	msg := ctx.LastMsg()
	if msg.Target != "bob" || msg.Message != "You've been made an admin by testuser!" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestMakeAdminCommandUnregisteredTarget(t *testing.T) {
	ctx, table, _, _ := fixture(t)
	table.Observe("drifter")

	ctx.WithArgs("makeadmin", "drifter")
	(&MakeAdminCommand{}).Execute(ctx)
	if ctx.LastReply() != "User drifter is not correctly registered (yet)." {
		t.Errorf("reply = %q", ctx.LastReply())
	}
	if table.IsAdmin("drifter") {
		t.Error("unregistered target became admin")
	}
}

func TestMakeAdminCommandAbsentTarget(t *testing.T) {
	ctx, _, _, _ := fixture(t)

	ctx.WithArgs("makeadmin", "ghost")
	(&MakeAdminCommand{}).Execute(ctx)
	if ctx.LastReply() != "User ghost is not correctly registered (yet)." {
		t.Errorf("reply = %q", ctx.LastReply())
	}
}

func TestRemoveAdminCommand(t *testing.T) {
	ctx, table, _, store := fixture(t)
	id := loggedIn(t, table, store, "bob")
	id.Admin = true
	table.AddAdmin("bob")

	ctx.WithArgs("removeadmin", "bob")
	(&RemoveAdminCommand{}).Execute(ctx)

	if ctx.LastReply() != "Admin has been removed from user bob." {
		t.Errorf("reply = %q", ctx.LastReply())
	}
	if table.IsAdmin("bob") {
		t.Error("bob still in the live admin set")
	}

	saved, err := store.Load("bob")
	if err != nil || saved == nil {
		t.Fatalf("load: %v, %v", saved, err)
	}
	if saved.Admin {
		t.Error("admin flag still persisted")
	}

	msg := ctx.LastMsg()
	if msg.Target != "bob" || msg.Message != "User testuser has removed your admin!" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestRemoveAdminCommandNonAdminTarget(t *testing.T) {
	ctx, table, _, store := fixture(t)
	loggedIn(t, table, store, "bob")

	ctx.WithArgs("removeadmin", "bob")
	(&RemoveAdminCommand{}).Execute(ctx)
	if ctx.LastReply() != "User bob is not correctly registered (yet)." {
		t.Errorf("reply = %q", ctx.LastReply())
	}
}
