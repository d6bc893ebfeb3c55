package collection

import (
	"context"

	"github.com/yanizio/storefront/internal/record"
)

// FormMode is the edit form state: Closed, or Open in create or edit mode.
type FormMode string

const (
	FormClosed FormMode = "closed"
	FormCreate FormMode = "create"
	FormEdit   FormMode = "edit"
)

// Form is the single edit form of a controller.
type Form struct {
	Mode   FormMode      `json:"mode"`
	Record record.Record `json:"record,omitempty"`
}

// Open reports whether the form is showing.
func (f Form) Open() bool { return f.Mode == FormCreate || f.Mode == FormEdit }

func (f Form) clone() Form {
	if f.Mode == "" {
		f.Mode = FormClosed
	}
	f.Record = f.Record.Clone()
	return f
}

// Action names a change that waits for operator confirmation.
type Action string

const (
	ActionToggleActive Action = "toggle_active"
	ActionDelete       Action = "delete"
)

// Pending is the PendingConfirmation state: the staged action plus the
// prompt to put in front of the operator.
type Pending struct {
	Action Action `json:"action"`
	ID     string `json:"id"`
	Label  string `json:"label"`
	Active bool   `json:"active,omitempty"`
	Prompt string `json:"prompt"`
}

// OpenCreate opens an empty form pre-filled with schema defaults.
func (c *Controller) OpenCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form.Open() {
		return ErrFormOpen
	}
	c.form = Form{Mode: FormCreate, Record: c.schema.Defaults()}
	return nil
}

// OpenEdit opens the form on the row with id.
func (c *Controller) OpenEdit(ctx context.Context, id string) error {
	c.mu.Lock()
	open := c.form.Open()
	c.mu.Unlock()
	if open {
		return ErrFormOpen
	}
	rec, err := c.Get(ctx, id)
	if err != nil {
		c.fail("edit", err)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form.Open() {
		return ErrFormOpen
	}
	c.form = Form{Mode: FormEdit, Record: rec}
	return nil
}

// Cancel closes the form without saving.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.form = Form{Mode: FormClosed}
	c.mu.Unlock()
}

// Form returns the current form state.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.clone()
}
