package filesystem

import (
	"fmt"

	"github.com/scott-wilson/publish/pkg/transaction"
)

// Kind identifies a filesystem action.
type Kind uint8

const (
	// Copy copies Source to Target, recursing into directories.
	Copy Kind = iota + 1
	// Move renames Source to Target.
	Move
	// RollbackMove renames Target back to Source. Only ever synthesized as
	// the inverse of Move.
	RollbackMove
	// SoftLink creates a symbolic link at Target whose text is Source.
	SoftLink
	// HardLink creates Target as a hard link to Source.
	HardLink
	// CreateDirectory creates Target and any missing parents.
	CreateDirectory
	// Delete removes Target, recursively for directories. Not reversible.
	Delete
	// ChangeOwnerPermissions changes the owner, group and mode of Target.
	ChangeOwnerPermissions
)

// String returns the action name used in logs, metrics and manifests.
func (k Kind) String() string {
	switch k {
	case Copy:
		return "copy"
	case Move:
		return "move"
	case RollbackMove:
		return "rollback_move"
	case SoftLink:
		return "soft_link"
	case HardLink:
		return "hard_link"
	case CreateDirectory:
		return "create_directory"
	case Delete:
		return "delete"
	case ChangeOwnerPermissions:
		return "change_owner_permissions"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Class is the batching classification of an action. Adjacent actions of the
// same class run concurrently; a class change is a barrier.
type Class uint8

const (
	ClassChangeOwnerPermissions Class = iota + 1
	ClassCreateDirectory
	ClassCopyMoveHardLink
	ClassSoftLink
	ClassDelete
)

// String returns the class name used in logs and metrics.
func (c Class) String() string {
	switch c {
	case ClassChangeOwnerPermissions:
		return "change_owner_permissions"
	case ClassCreateDirectory:
		return "create_directory"
	case ClassCopyMoveHardLink:
		return "copy_move_hard_link"
	case ClassSoftLink:
		return "soft_link"
	case ClassDelete:
		return "delete"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Class returns the batching class of k.
func (k Kind) Class() Class {
	switch k {
	case Copy, Move, RollbackMove, HardLink:
		return ClassCopyMoveHardLink
	case SoftLink:
		return ClassSoftLink
	case CreateDirectory:
		return ClassCreateDirectory
	case Delete:
		return ClassDelete
	case ChangeOwnerPermissions:
		return ClassChangeOwnerPermissions
	default:
		return 0
	}
}

// Action is one recorded filesystem operation.
//
// Target is always resolved through the transaction root. Source is only
// meaningful for Copy, Move, RollbackMove, SoftLink and HardLink.
type Action struct {
	Kind   Kind
	Source string
	Target string

	// User and Group are names or numeric ids; empty means unchanged.
	User  string
	Group string

	// Permissions is merged with the current mode; nil means unchanged.
	Permissions *transaction.Permissions

	// restore holds the captured prior state when this action is the inverse
	// of a ChangeOwnerPermissions.
	restore *ownerState
}

// String renders the action for logs.
func (a Action) String() string {
	switch a.Kind {
	case Copy, Move, RollbackMove, SoftLink, HardLink:
		return fmt.Sprintf("%s %s -> %s", a.Kind, a.Source, a.Target)
	case ChangeOwnerPermissions:
		perms := "unchanged"
		if a.Permissions != nil {
			perms = a.Permissions.String()
		}
		return fmt.Sprintf("%s %s user=%q group=%q permissions=%s", a.Kind, a.Target, a.User, a.Group, perms)
	default:
		return fmt.Sprintf("%s %s", a.Kind, a.Target)
	}
}

// inverse returns the rollback action for a, or false when a has none.
// ChangeOwnerPermissions is handled separately since its inverse depends on
// the state of the path at commit time.
func (a Action) inverse() (Action, bool) {
	switch a.Kind {
	case Copy, SoftLink, HardLink, CreateDirectory:
		return Action{Kind: Delete, Target: a.Target}, true
	case Move:
		return Action{Kind: RollbackMove, Source: a.Source, Target: a.Target}, true
	default:
		return Action{}, false
	}
}
