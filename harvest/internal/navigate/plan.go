package navigate

import "time"

// Entry selects how the course-entry control is found.
type Entry int

const (
	// EntryLMS looks for a start/resume/review control, possibly behind a
	// shadow root.
	EntryLMS Entry = iota
	// EntryLessonChain dismisses cookie consent and clicks the authoring
	// player's cover start/resume link.
	EntryLessonChain
)

// Plan describes which parts of the flow run for one address.
type Plan struct {
	Address string
	Login   bool  // run the sign-in flow first
	Entry   Entry // course-entry variant
	Lessons bool  // walk the sidebar lesson list when present
	Paging  bool  // follow the "next" control
}

// ModulePlan is the LMS module flow: sign in, enter, walk the sidebar
// lessons, then follow any next control.
func ModulePlan(addr string) Plan {
	return Plan{Address: addr, Login: true, Entry: EntryLMS, Lessons: true, Paging: true}
}

// SinglePlan is one LMS content page advanced with its next control.
func SinglePlan(addr string) Plan {
	return Plan{Address: addr, Login: true, Entry: EntryLMS, Paging: true}
}

// LessonChainPlan is the authoring player flow: no sign-in, cover entry, then
// lesson after lesson through the next-lesson link.
func LessonChainPlan(addr string) Plan {
	return Plan{Address: addr, Entry: EntryLessonChain, Paging: true}
}

// Selectors locates every control the machine interacts with.
type Selectors struct {
	OtherAccount   string `yaml:"other_account"`
	Identifier     string `yaml:"identifier"`
	IdentifierNext string `yaml:"identifier_next"`
	Secret         string `yaml:"secret"`
	SecretSubmit   string `yaml:"secret_submit"`
	Landmark       string `yaml:"landmark"`
	StaySignedIn   string `yaml:"stay_signed_in"`

	EntryCandidates string `yaml:"entry_candidates"`
	EntryLabel      string `yaml:"entry_label"` // regexp on trimmed text
	ReviewHost      string `yaml:"review_host"`
	ShadowTarget    string `yaml:"shadow_target"`

	ConsentButtons  string `yaml:"consent_buttons"`
	ConsentLabel    string `yaml:"consent_label"` // regexp
	ChainEnrolled   string `yaml:"chain_enrolled"`
	ChainEntry      string `yaml:"chain_entry"`
	ChainEntryLabel string `yaml:"chain_entry_label"` // regexp

	Collapsed      string `yaml:"collapsed"`
	SequenceViewer string `yaml:"sequence_viewer"`
	LessonLink     string `yaml:"lesson_link"`
	Next           string `yaml:"next"`
}

// DefaultSelectors targets Brightspace behind Microsoft sign-in, and
// Articulate Rise players.
func DefaultSelectors() Selectors {
	return Selectors{
		OtherAccount:   "#otherTile",
		Identifier:     `input[type="email"], input#i0116`,
		IdentifierNext: `input[value="Next"], button[type="submit"], #idSIButton9`,
		Secret:         "#i0118",
		SecretSubmit:   `input[type="submit"], #idSIButton9`,
		Landmark:       "d2l-navigation",
		StaySignedIn:   "#idBtn_Back",

		EntryCandidates: `a, button, [role="button"], d2l-button`,
		EntryLabel:      `(?i)^(start|resume|review)\b`,
		ReviewHost:      "d2l-button",
		ShadowTarget:    "button",

		ConsentButtons:  `button, [role="button"]`,
		ConsentLabel:    `(?i)^accept all$`,
		ChainEnrolled:   "a.cover__header-content-action-link.overview__button-enrolled",
		ChainEntry:      "a.cover__header-content-action-link",
		ChainEntryLabel: `(?i)^(start|resume) course$`,

		Collapsed:      `[aria-expanded="false"], .section-header`,
		SequenceViewer: "d2l-sequence-viewer",
		LessonLink:     "a.lesson-link",
		Next:           `a.lesson-nav-link__link[data-direction="next"], a[data-direction="next"]`,
	}
}

// Merge fills every empty field of s from d.
func (s Selectors) Merge(d Selectors) Selectors {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&s.OtherAccount, d.OtherAccount)
	fill(&s.Identifier, d.Identifier)
	fill(&s.IdentifierNext, d.IdentifierNext)
	fill(&s.Secret, d.Secret)
	fill(&s.SecretSubmit, d.SecretSubmit)
	fill(&s.Landmark, d.Landmark)
	fill(&s.StaySignedIn, d.StaySignedIn)
	fill(&s.EntryCandidates, d.EntryCandidates)
	fill(&s.EntryLabel, d.EntryLabel)
	fill(&s.ReviewHost, d.ReviewHost)
	fill(&s.ShadowTarget, d.ShadowTarget)
	fill(&s.ConsentButtons, d.ConsentButtons)
	fill(&s.ConsentLabel, d.ConsentLabel)
	fill(&s.ChainEnrolled, d.ChainEnrolled)
	fill(&s.ChainEntry, d.ChainEntry)
	fill(&s.ChainEntryLabel, d.ChainEntryLabel)
	fill(&s.Collapsed, d.Collapsed)
	fill(&s.SequenceViewer, d.SequenceViewer)
	fill(&s.LessonLink, d.LessonLink)
	fill(&s.Next, d.Next)
	return s
}

// Timings holds every fixed wait. Waits never back off; exceeding one skips
// the step it guards. Zero means no wait (pauses) or no bound (timeouts).
type Timings struct {
	Navigation   time.Duration `yaml:"navigation"`
	OtherAccount time.Duration `yaml:"other_account"`
	Identifier   time.Duration `yaml:"identifier"`
	Secret       time.Duration `yaml:"secret"`
	SecretFocus  time.Duration `yaml:"secret_focus"`
	TypeSettle   time.Duration `yaml:"type_settle"`
	Submit       time.Duration `yaml:"submit"`
	Landmark     time.Duration `yaml:"landmark"`
	LandmarkWait time.Duration `yaml:"landmark_wait"`
	StaySignedIn time.Duration `yaml:"stay_signed_in"`
	Settle       time.Duration `yaml:"settle"`
	EntryPause   time.Duration `yaml:"entry_pause"`
	ExpandPause  time.Duration `yaml:"expand_pause"`
	ScrollPause  time.Duration `yaml:"scroll_pause"`
	LessonPause  time.Duration `yaml:"lesson_pause"`
	NextSettle   time.Duration `yaml:"next_settle"`
	NextPause    time.Duration `yaml:"next_pause"`
	ConsentDelay time.Duration `yaml:"consent_delay"`
	ConsentPause time.Duration `yaml:"consent_pause"`
	ChainPause   time.Duration `yaml:"chain_pause"`
}

// DefaultTimings returns the waits tuned against Brightspace and Rise.
func DefaultTimings() Timings {
	return Timings{
		Navigation:   10 * time.Second,
		OtherAccount: 3 * time.Second,
		Identifier:   5 * time.Second,
		Secret:       8 * time.Second,
		SecretFocus:  5 * time.Second,
		TypeSettle:   300 * time.Millisecond,
		Submit:       7 * time.Second,
		Landmark:     7 * time.Second,
		LandmarkWait: 5 * time.Second,
		StaySignedIn: 5 * time.Second,
		Settle:       10 * time.Second,
		EntryPause:   2 * time.Second,
		ExpandPause:  500 * time.Millisecond,
		ScrollPause:  time.Second,
		LessonPause:  3 * time.Second,
		NextSettle:   10 * time.Second,
		NextPause:    1500 * time.Millisecond,
		ConsentDelay: 2 * time.Second,
		ConsentPause: time.Second,
		ChainPause:   2500 * time.Millisecond,
	}
}

// Limits bounds loops that have no natural end signal.
type Limits struct {
	MaxPages        int `yaml:"max_pages"`
	MaxLessons      int `yaml:"max_lessons"`
	MaxScrollRounds int `yaml:"max_scroll_rounds"`
	MaxDepth        int `yaml:"max_depth"`
	MaxStalls       int `yaml:"max_stalls"`
}

// DefaultLimits returns the default loop bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxPages:        50,
		MaxLessons:      200,
		MaxScrollRounds: 20,
		MaxDepth:        10,
		MaxStalls:       2,
	}
}

func (l *Limits) defaults() {
	d := DefaultLimits()
	if l.MaxPages <= 0 {
		l.MaxPages = d.MaxPages
	}
	if l.MaxLessons <= 0 {
		l.MaxLessons = d.MaxLessons
	}
	if l.MaxScrollRounds <= 0 {
		l.MaxScrollRounds = d.MaxScrollRounds
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxStalls <= 0 {
		l.MaxStalls = d.MaxStalls
	}
}
