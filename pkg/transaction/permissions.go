package transaction

import (
	"fmt"
	"strconv"
	"strings"

	puberrors "github.com/scott-wilson/publish/pkg/errors"
)

// Permission is a tri-state permission bit.
//
// The zero value is Unchanged, which is the identity element of Overwrite:
// a partial edit only touches the bits it sets or unsets.
type Permission uint8

const (
	// Unchanged keeps whatever value the bit currently has.
	Unchanged Permission = iota
	// Set turns the bit on.
	Set
	// Unset turns the bit off.
	Unset
)

// String returns the permission name.
func (p Permission) String() string {
	switch p {
	case Unchanged:
		return "unchanged"
	case Set:
		return "set"
	case Unset:
		return "unset"
	default:
		return fmt.Sprintf("Permission(%d)", uint8(p))
	}
}

// Overwrite returns other unless other is Unchanged, in which case p is kept.
func (p Permission) Overwrite(other Permission) Permission {
	if other == Unchanged {
		return p
	}
	return other
}

// ScopedPermissions holds the read/write/execute bits of one scope
// (user, group or other).
type ScopedPermissions struct {
	Read    Permission
	Write   Permission
	Execute Permission
}

// Overwrite merges other into s component-wise.
func (s ScopedPermissions) Overwrite(other ScopedPermissions) ScopedPermissions {
	return ScopedPermissions{
		Read:    s.Read.Overwrite(other.Read),
		Write:   s.Write.Overwrite(other.Write),
		Execute: s.Execute.Overwrite(other.Execute),
	}
}

// Permissions is a partial or complete POSIX permission set.
type Permissions struct {
	User  ScopedPermissions
	Group ScopedPermissions
	Other ScopedPermissions
}

// permissionBits maps each bit to its mode value, in "rwxrwxrwx" order.
var permissionBits = [9]uint32{0o400, 0o200, 0o100, 0o040, 0o020, 0o010, 0o004, 0o002, 0o001}

const symbolicBits = "rwxrwxrwx"

// Overwrite merges other into p component-wise.
func (p Permissions) Overwrite(other Permissions) Permissions {
	return Permissions{
		User:  p.User.Overwrite(other.User),
		Group: p.Group.Overwrite(other.Group),
		Other: p.Other.Overwrite(other.Other),
	}
}

// FromMode builds a fully resolved Permissions from the lower 9 bits of mode.
func FromMode(mode uint32) Permissions {
	var p Permissions
	bits := p.bits()
	for i, bit := range permissionBits {
		if mode&bit != 0 {
			*bits[i] = Set
		} else {
			*bits[i] = Unset
		}
	}
	return p
}

// Mode converts p to a 9-bit mode. It fails with ErrInvalidPermission when
// any bit is still Unchanged.
func (p Permissions) Mode() (uint32, error) {
	var mode uint32
	for i, bit := range p.bits() {
		switch *bit {
		case Set:
			mode |= permissionBits[i]
		case Unset:
		default:
			return 0, puberrors.NewInvalidPermissionError(
				fmt.Sprintf("bit %c of %s is unresolved", symbolicBits[i], p))
		}
	}
	return mode, nil
}

// IsUnchanged reports whether every bit is Unchanged.
func (p Permissions) IsUnchanged() bool {
	return p == Permissions{}
}

// String renders the symbolic form: r/w/x for Set, '-' for Unset and '.'
// for Unchanged, e.g. "rw.r..---".
func (p Permissions) String() string {
	var b strings.Builder
	b.Grow(9)
	for i, bit := range p.bits() {
		switch *bit {
		case Set:
			b.WriteByte(symbolicBits[i])
		case Unset:
			b.WriteByte('-')
		default:
			b.WriteByte('.')
		}
	}
	return b.String()
}

// ParsePermissions accepts the symbolic form produced by String or an octal
// mode such as "0644" or "755".
func ParsePermissions(s string) (Permissions, error) {
	s = strings.TrimSpace(s)
	if len(s) == 9 && !isOctal(s) {
		var p Permissions
		bits := p.bits()
		for i := 0; i < 9; i++ {
			switch c := s[i]; {
			case c == symbolicBits[i]:
				*bits[i] = Set
			case c == '-':
				*bits[i] = Unset
			case c == '.':
				*bits[i] = Unchanged
			default:
				return Permissions{}, puberrors.NewInvalidPermissionError(
					fmt.Sprintf("invalid character %q at position %d in %q", c, i, s))
			}
		}
		return p, nil
	}

	if s == "" || !isOctal(s) {
		return Permissions{}, puberrors.NewInvalidPermissionError(fmt.Sprintf("invalid permissions %q", s))
	}
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil || mode > 0o777 {
		return Permissions{}, puberrors.NewInvalidPermissionError(fmt.Sprintf("invalid octal mode %q", s))
	}
	return FromMode(uint32(mode)), nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Permissions) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Permissions) UnmarshalText(text []byte) error {
	parsed, err := ParsePermissions(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p *Permissions) bits() [9]*Permission {
	return [9]*Permission{
		&p.User.Read, &p.User.Write, &p.User.Execute,
		&p.Group.Read, &p.Group.Write, &p.Group.Execute,
		&p.Other.Read, &p.Other.Write, &p.Other.Execute,
	}
}

func isOctal(s string) bool {
	for _, c := range s {
		if c < '0' || c > '7' {
			return false
		}
	}
	return s != ""
}
