package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ignaciov/matechat/internal/wire"
)

// LabelPicker lists the label catalog for the active chat. Enter assigns
// the highlighted label, 'u' unassigns it. Both are fire-and-forget; the
// list marks the chat's current labels from the last known roster state.
type LabelPicker struct {
	*tview.List
	catalog    []wire.Label
	assigned   map[string]bool
	onAssign   func(labelID string)
	onUnassign func(labelID string)
}

// NewLabelPicker creates a new label picker.
func NewLabelPicker() *LabelPicker {
	list := tview.NewList().
		ShowSecondaryText(false)
	list.SetBorder(true).SetTitle(" Labels ")

	lp := &LabelPicker{List: list}

	list.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		if index >= 0 && index < len(lp.catalog) && lp.onAssign != nil {
			lp.onAssign(lp.catalog[index].ID)
		}
	})
	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && event.Rune() == 'u' {
			index := lp.GetCurrentItem()
			if index >= 0 && index < len(lp.catalog) && lp.onUnassign != nil {
				lp.onUnassign(lp.catalog[index].ID)
			}
			return nil
		}
		return event
	})

	return lp
}

// SetOnAssign sets the callback for label assignment.
func (lp *LabelPicker) SetOnAssign(fn func(labelID string)) {
	lp.onAssign = fn
}

// SetOnUnassign sets the callback for label removal.
func (lp *LabelPicker) SetOnUnassign(fn func(labelID string)) {
	lp.onUnassign = fn
}

// Update refreshes the catalog entries. assigned holds the label ids
// currently attached to the active chat.
func (lp *LabelPicker) Update(catalog []wire.Label, assigned []string) {
	lp.catalog = catalog
	lp.assigned = make(map[string]bool, len(assigned))
	for _, id := range assigned {
		lp.assigned[id] = true
	}

	lp.Clear()
	for _, label := range catalog {
		mark := "  "
		if lp.assigned[label.ID] {
			mark = "* "
		}
		lp.AddItem(fmt.Sprintf("%s%s", mark, label.Name), "", 0, nil)
	}
}
