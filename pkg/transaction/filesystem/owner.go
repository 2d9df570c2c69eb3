package filesystem

import (
	"context"
	"io/fs"
	"os/user"
	"strconv"
	"syscall"

	"github.com/scott-wilson/publish/internal/logger"
	"github.com/scott-wilson/publish/internal/telemetry"
	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"github.com/scott-wilson/publish/pkg/transaction"
	"go.opentelemetry.io/otel/trace"
)

// specialBits are the mode bits Chmod carries besides the permission bits.
const specialBits = fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// ownerState is the owner, group and mode of a path before a change.
type ownerState struct {
	uid  int
	gid  int
	mode fs.FileMode
}

// captureOwner reads the current owner (of the path itself) and mode (of what
// it points to) of rel.
func (d *Dir) captureOwner(rel string) (*ownerState, error) {
	linfo, err := d.root.Lstat(rel)
	if err != nil {
		return nil, puberrors.NewIOError("stat", rel, err)
	}
	st, ok := linfo.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, puberrors.NewInvalidMetadataError(rel)
	}

	mode := linfo.Mode()
	if linfo.Mode()&fs.ModeSymlink != 0 {
		info, err := d.root.Stat(rel)
		if err != nil {
			return nil, puberrors.NewIOError("stat", rel, err)
		}
		mode = info.Mode()
	}

	return &ownerState{
		uid:  int(st.Uid),
		gid:  int(st.Gid),
		mode: mode & (fs.ModePerm | specialBits),
	}, nil
}

// changeOwnerPermissions applies a ChangeOwnerPermissions action. Ownership is
// changed first since chown may clear setuid and setgid bits.
func (d *Dir) changeOwnerPermissions(ctx context.Context, a Action) error {
	rel, err := d.Rel(a.Target)
	if err != nil {
		return err
	}

	uid, gid := -1, -1
	if a.User != "" {
		if uid, err = lookupUser(a.User); err != nil {
			return err
		}
	}
	if a.Group != "" {
		if gid, err = lookupGroup(a.Group); err != nil {
			return err
		}
	}
	if uid != -1 || gid != -1 {
		if err := d.root.Lchown(rel, uid, gid); err != nil {
			return puberrors.NewIOError("chown", a.Target, err)
		}
		ownerChanged(ctx, a.Target, uid, gid)
	}

	if a.Permissions == nil || a.Permissions.IsUnchanged() {
		return nil
	}

	info, err := d.root.Stat(rel)
	if err != nil {
		return puberrors.NewIOError("stat", a.Target, err)
	}
	merged := transaction.FromMode(uint32(info.Mode().Perm())).Overwrite(*a.Permissions)
	perm, err := merged.Mode()
	if err != nil {
		return err
	}
	mode := info.Mode()&specialBits | fs.FileMode(perm)
	if err := d.root.Chmod(rel, mode); err != nil {
		return puberrors.NewIOError("chmod", a.Target, err)
	}
	modeChanged(ctx, a.Target, mode)
	return nil
}

// restoreOwner puts back a state captured by captureOwner.
func (d *Dir) restoreOwner(ctx context.Context, target string, prior *ownerState) error {
	rel, err := d.Rel(target)
	if err != nil {
		return err
	}
	current, err := d.captureOwner(rel)
	if err != nil {
		return err
	}
	if current.uid != prior.uid || current.gid != prior.gid {
		if err := d.root.Lchown(rel, prior.uid, prior.gid); err != nil {
			return puberrors.NewIOError("chown", target, err)
		}
		ownerChanged(ctx, target, prior.uid, prior.gid)
	}
	if err := d.root.Chmod(rel, prior.mode); err != nil {
		return puberrors.NewIOError("chmod", target, err)
	}
	modeChanged(ctx, target, prior.mode)
	return nil
}

// ownerChanged logs a chown. An id of -1 was left unchanged.
func ownerChanged(ctx context.Context, target string, uid, gid int) {
	logger.DebugCtx(ctx, "Owner changed",
		logger.Path(target),
		logger.KeyUID, uid,
		logger.KeyGID, gid)
	trace.SpanFromContext(ctx).AddEvent("chown", trace.WithAttributes(
		telemetry.Target(target),
		telemetry.UID(uid),
		telemetry.GID(gid),
	))
}

func modeChanged(ctx context.Context, target string, mode fs.FileMode) {
	logger.DebugCtx(ctx, "Mode changed",
		logger.Path(target),
		logger.Mode(mode))
	trace.SpanFromContext(ctx).AddEvent("chmod", trace.WithAttributes(
		telemetry.Target(target),
		telemetry.Mode(uint32(mode.Perm())),
	))
}

// lookupUser resolves a user name, or a numeric uid, to a uid.
func lookupUser(name string) (int, error) {
	u, err := user.Lookup(name)
	if err == nil {
		return strconv.Atoi(u.Uid)
	}
	if id, convErr := strconv.Atoi(name); convErr == nil && id >= 0 {
		return id, nil
	}
	return 0, puberrors.NewIOError("lookup user", name, err)
}

// lookupGroup resolves a group name, or a numeric gid, to a gid.
func lookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err == nil {
		return strconv.Atoi(g.Gid)
	}
	if id, convErr := strconv.Atoi(name); convErr == nil && id >= 0 {
		return id, nil
	}
	return 0, puberrors.NewIOError("lookup group", name, err)
}
