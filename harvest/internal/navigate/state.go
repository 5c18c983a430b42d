package navigate

// State is the position of a Machine in the navigation flow.
type State int

const (
	LoggingIn State = iota
	AwaitingCourseEntry
	OnContentPage
	AdvancingToNext
	Done
	Failed
)

var stateNames = [...]string{
	LoggingIn:           "logging_in",
	AwaitingCourseEntry: "awaiting_course_entry",
	OnContentPage:       "on_content_page",
	AdvancingToNext:     "advancing_to_next",
	Done:                "done",
	Failed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Done || s == Failed }
