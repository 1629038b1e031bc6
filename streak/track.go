package streak

// Track describes one habit domain. The three shipped tracks were once three
// copy-pasted page scripts with renamed fields; everything that differed
// between them is captured here so the engine stays generic.
type Track struct {
	// Name is the stable identifier used in URLs and the streak_records.track column.
	Name string
	// Title is the human-facing track name.
	Title string
	// CommitmentLabel names the free-text field in user-facing messages
	// ("script" for Monk Mode, "identity statement" elsewhere).
	CommitmentLabel string
	// CommitmentPlaceholder is shown when no commitment text is saved yet.
	CommitmentPlaceholder string
	// MaxCommitmentLen caps the sanitized commitment text, in runes.
	MaxCommitmentLen int

	// SupportsStartingDay enables the back-dated "starting day" offset.
	SupportsStartingDay bool
	// MaxStartingDay bounds the displayed day a user may back-date to.
	MaxStartingDay int

	// SupportsAllowedItems enables the per-user allowlist (e.g. creators
	// the No Social track still permits).
	SupportsAllowedItems bool
	// MaxAllowedItems caps the allowlist length.
	MaxAllowedItems int
	// MaxAllowedItemLen caps a single allowlist entry, in runes.
	MaxAllowedItemLen int
}

const (
	defaultMaxCommitmentLen  = 2000
	defaultMaxStartingDay    = 5000
	defaultMaxAllowedItems   = 50
	defaultMaxAllowedItemLen = 200
)

var tracks = map[string]Track{
	"monkmode": {
		Name:                  "monkmode",
		Title:                 "Monk Mode",
		CommitmentLabel:       "script",
		CommitmentPlaceholder: "No script saved yet. Your first check-in will lock it in.",
		MaxCommitmentLen:      defaultMaxCommitmentLen,
		SupportsStartingDay:   true,
		MaxStartingDay:        defaultMaxStartingDay,
	},
	"nofap": {
		Name:                  "nofap",
		Title:                 "NoFap",
		CommitmentLabel:       "identity statement",
		CommitmentPlaceholder: "No identity saved yet. Your first check-in will lock it in.",
		MaxCommitmentLen:      defaultMaxCommitmentLen,
		SupportsStartingDay:   true,
		MaxStartingDay:        defaultMaxStartingDay,
	},
	"nosocial": {
		Name:                  "nosocial",
		Title:                 "Healthy Social Media",
		CommitmentLabel:       "identity statement",
		CommitmentPlaceholder: "No identity saved yet. Your first check-in will lock it in.",
		MaxCommitmentLen:      defaultMaxCommitmentLen,
		SupportsAllowedItems:  true,
		MaxAllowedItems:       defaultMaxAllowedItems,
		MaxAllowedItemLen:     defaultMaxAllowedItemLen,
	},
}

// LookupTrack returns the configuration for a track name.
func LookupTrack(name string) (Track, bool) {
	t, ok := tracks[name]
	return t, ok
}

// TrackNames returns the known track names in a stable order.
func TrackNames() []string {
	return []string{"monkmode", "nofap", "nosocial"}
}
