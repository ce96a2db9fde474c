package domain

// ModeKind enumerates the overlays the list page can show. At most one is
// open at a time.
type ModeKind int

const (
	ModeNone ModeKind = iota
	ModeCreating
	ModeEditing
	ModeViewing
	ModeDeleting
	ModeImporting
)

var modeNames = map[ModeKind]string{
	ModeNone:      "none",
	ModeCreating:  "creating",
	ModeEditing:   "editing",
	ModeViewing:   "viewing",
	ModeDeleting:  "deleting",
	ModeImporting: "importing",
}

func (k ModeKind) String() string {
	if s, ok := modeNames[k]; ok {
		return s
	}
	return "unknown"
}

// Mode is the current overlay. Subject is set for editing, viewing and
// deleting, and nil otherwise.
type Mode struct {
	Kind    ModeKind
	Subject *User
}

// Is reports whether the mode is of kind k.
func (m Mode) Is(k ModeKind) bool { return m.Kind == k }

// Open reports whether any overlay is shown.
func (m Mode) Open() bool { return m.Kind != ModeNone }

// MarshalText lets snapshots carry the mode as a plain string.
func (k ModeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
