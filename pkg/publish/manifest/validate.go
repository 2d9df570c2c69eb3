package manifest

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/scott-wilson/publish/pkg/publish"
	"github.com/scott-wilson/publish/pkg/transaction"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks m using struct tags and the rules tags cannot express.
func Validate(m *Manifest) error {
	if err := validate.Struct(m); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(m)
}

func validateCustomRules(m *Manifest) error {
	total := 0
	for _, stage := range []publish.Stage{publish.StagePrePublish, publish.StagePublish, publish.StagePostPublish} {
		entries := m.Stages.entries(stage)
		total += len(entries)
		if err := validateEntries(m, fmt.Sprintf("stages.%s", stage), entries); err != nil {
			return err
		}
	}
	if total == 0 {
		return fmt.Errorf("stages: at least one entry is required")
	}

	if _, err := m.InitialContext(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

func validateEntries(m *Manifest, path string, entries []Entry) error {
	for i := range entries {
		e := &entries[i]
		at := fmt.Sprintf("%s[%d]", path, i)

		set := 0
		if e.Filesystem != nil {
			set++
		}
		if e.ObjectStore != nil {
			set++
		}
		if e.Group != nil {
			set++
		}
		if set != 1 {
			return fmt.Errorf("%s: exactly one of filesystem, object_store or group must be set", at)
		}

		switch {
		case e.Filesystem != nil:
			if err := validateFilesystem(m, at+".filesystem", e.Filesystem); err != nil {
				return err
			}
		case e.ObjectStore != nil:
			if len(e.ObjectStore.Uploads) == 0 && len(e.ObjectStore.Deletes) == 0 {
				return fmt.Errorf("%s.object_store: at least one upload or delete is required", at)
			}
		default:
			if len(e.Group) == 0 {
				return fmt.Errorf("%s.group: at least one entry is required", at)
			}
			if err := validateEntries(m, at+".group", e.Group); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateFilesystem(m *Manifest, at string, e *FilesystemEntry) error {
	if m.rootFor(e) == "" {
		return fmt.Errorf("%s: root is required when the manifest has no default root", at)
	}

	for i, a := range e.Actions {
		actionAt := fmt.Sprintf("%s.actions[%d]", at, i)
		if n := a.count(); n != 1 {
			return fmt.Errorf("%s: exactly one operation must be set, found %d", actionAt, n)
		}

		if op := a.ChangeOwnerPermissions; op != nil {
			if op.User == "" && op.Group == "" && op.Permissions == "" {
				return fmt.Errorf("%s.change_owner_permissions: one of user, group or permissions is required", actionAt)
			}
			if op.Permissions != "" {
				if _, err := transaction.ParsePermissions(op.Permissions); err != nil {
					return fmt.Errorf("%s.change_owner_permissions: %w", actionAt, err)
				}
			}
		}
	}
	return nil
}

// count returns how many operations are set on a.
func (a *FilesystemAction) count() int {
	n := 0
	for _, set := range []bool{
		a.CreateDirectory != "",
		a.Copy != nil,
		a.Move != nil,
		a.HardLink != nil,
		a.SoftLink != nil,
		a.Delete != "",
		a.ChangeOwnerPermissions != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
