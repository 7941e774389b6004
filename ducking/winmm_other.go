// +build !windows

package ducking

func defaultTargetModule() string { return "" }

// Wave-out interposition only exists on Windows. These are never installed
// since no ducker reports support elsewhere.
func (m *Manager) openReplacement() interface{} { return nil }

func (m *Manager) closeReplacement() interface{} { return nil }
