package tui

// StatusOf exposes the status of a task for testing.
func (m *Model) StatusOf(name string) string {
	if row, ok := m.byName[name]; ok {
		return row.status.String()
	}
	return ""
}

// SelectedName exposes the selected task for testing.
func (m *Model) SelectedName() string {
	if row := m.selectedRow(); row != nil {
		return row.name
	}
	return ""
}

// Following exposes follow mode for testing.
func (m *Model) Following() bool {
	return m.follow
}

// PaneOf exposes the output pane of a task for testing.
func (m *Model) PaneOf(name string) *Pane {
	if row, ok := m.byName[name]; ok {
		return row.pane
	}
	return nil
}

// Offset exposes the scroll position for testing.
func (p *Pane) Offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// MaxOffset exposes the bottom scroll position for testing.
func (p *Pane) MaxOffset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxOffset()
}

// Height exposes the visible height for testing.
func (p *Pane) Height() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}
